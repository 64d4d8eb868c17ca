package core

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// LocalClient serves ledger.Client directly from an in-process Ledger
type LocalClient struct {
	ledger *Ledger
}

var _ ledger.Client = (*LocalClient)(nil)

func NewLocalClient(l *Ledger) *LocalClient {
	return &LocalClient{ledger: l}
}

func (c *LocalClient) GetAccountInfo(ctx context.Context, address prt.PublicKey) (*ledger.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ledger.GetAccount(address)
}

func (c *LocalClient) GetBalance(ctx context.Context, address prt.PublicKey) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.ledger.GetBalance(address)
}

func (c *LocalClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return MinimumBalanceForRentExemption(size), nil
}

func (c *LocalClient) GetLatestBlockhash(ctx context.Context) (prt.Hash, error) {
	if err := ctx.Err(); err != nil {
		return prt.Hash{}, err
	}
	return c.ledger.GetLatestBlockhash(), nil
}

func (c *LocalClient) GetFeeForMessage(ctx context.Context, msg *ledger.Message) (uint64, error) {
	return c.ledger.FeeForSignatures(int(msg.Header.NumRequiredSignatures)), nil
}

func (c *LocalClient) RequestAirdrop(ctx context.Context, address prt.PublicKey, lamports uint64) (prt.Signature, error) {
	if err := ctx.Err(); err != nil {
		return prt.Signature{}, err
	}
	return c.ledger.RequestAirdrop(address, lamports)
}

func (c *LocalClient) SendTransaction(ctx context.Context, tx *ledger.Transaction) (prt.Signature, error) {
	if err := ctx.Err(); err != nil {
		return prt.Signature{}, err
	}
	return c.ledger.ProcessTransaction(tx)
}

// ConfirmTransaction returns immediately: local transactions are processed synchronously
func (c *LocalClient) ConfirmTransaction(ctx context.Context, sig prt.Signature) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	status, err := c.ledger.GetSignatureStatus(sig)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("transaction %s not found", utils.SignatureToString(sig))
	}
	return status.TransactionError(sig)
}
