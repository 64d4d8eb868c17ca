// Package ledger defines the hosting ledger collaborators: the client interface used by the
// calculator, the transaction model and its wire format.
package ledger

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/utils"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// AccountInfo is the stored state of an account
type AccountInfo struct {
	Lamports   uint64        `json:"lamports"`
	Owner      prt.PublicKey `json:"owner"`
	Data       []byte        `json:"data"`
	Executable bool          `json:"executable"`
	RentEpoch  uint64        `json:"rentEpoch"`
}

// Signer holds a private signing capability for one public key
type Signer interface {
	PublicKey() prt.PublicKey
	Sign(message []byte) (prt.Signature, error)
}

// Client is the ledger access the calculator needs.
// GetAccountInfo returns nil, nil when no account exists at the address.
type Client interface {
	GetAccountInfo(ctx context.Context, address prt.PublicKey) (*AccountInfo, error)
	GetBalance(ctx context.Context, address prt.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (prt.Hash, error)
	GetFeeForMessage(ctx context.Context, msg *Message) (uint64, error)
	RequestAirdrop(ctx context.Context, address prt.PublicKey, lamports uint64) (prt.Signature, error)
	SendTransaction(ctx context.Context, tx *Transaction) (prt.Signature, error)
	ConfirmTransaction(ctx context.Context, sig prt.Signature) error
}

// TransactionError reports a transaction that was processed but failed
type TransactionError struct {
	Signature        prt.Signature
	InstructionIndex int // -1 when the failure is not tied to an instruction
	Reason           string
}

func (e *TransactionError) Error() string {
	if e.InstructionIndex >= 0 {
		return fmt.Sprintf("transaction %s failed at instruction %d: %s",
			utils.SignatureToString(e.Signature), e.InstructionIndex, e.Reason)
	}
	return fmt.Sprintf("transaction %s failed: %s", utils.SignatureToString(e.Signature), e.Reason)
}

// SendAndConfirm builds a transaction paid by signers[0], signs it with every signer,
// submits it and blocks until the ledger confirms or rejects it.
func SendAndConfirm(ctx context.Context, client Client, signers []Signer, instructions ...Instruction) (prt.Signature, error) {
	if len(signers) == 0 {
		return prt.Signature{}, fmt.Errorf("no signers")
	}

	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return prt.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := NewTransaction(signers[0].PublicKey(), blockhash, instructions...)
	if err != nil {
		return prt.Signature{}, err
	}

	if err := tx.Sign(signers...); err != nil {
		return prt.Signature{}, err
	}

	sig, err := client.SendTransaction(ctx, tx)
	if err != nil {
		return tx.Signature(), fmt.Errorf("failed to send transaction: %w", err)
	}

	if err := client.ConfirmTransaction(ctx, sig); err != nil {
		return sig, err
	}

	return sig, nil
}
