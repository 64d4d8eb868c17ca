package core

import (
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// Execution errors recorded in transaction statuses
var (
	ErrProgramNotFound          = errors.New("attempt to load a program that does not exist")
	ErrNotEnoughAccountKeys     = errors.New("insufficient account keys for instruction")
	ErrReadonlyAccount          = errors.New("instruction modified a readonly account")
	ErrMissingRequiredSignature = errors.New("missing required signature for instruction")
	ErrAccountInUse             = errors.New("account already in use")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInsufficientFundsForRent = errors.New("insufficient funds for rent")
	ErrInvalidAccountData       = errors.New("invalid account data for instruction")
	ErrAddressMismatch          = errors.New("address does not match derivation")
	ErrUnbalancedTransaction    = errors.New("sum of account balances before and after transaction do not match")
	ErrInvalidInstructionData   = errors.New("invalid instruction data")
)

// MaxAccountDataSize bounds the space a single account may allocate
const MaxAccountDataSize = 10 * 1024 * 1024

// ValidateTransaction checks structure and signatures without touching state
func ValidateTransaction(tx *ledger.Transaction) error {
	if err := tx.Message.Validate(); err != nil {
		return err
	}
	if len(tx.Message.AccountKeys) == 0 || tx.Message.Header.NumRequiredSignatures == 0 {
		return fmt.Errorf("transaction has no fee payer")
	}
	if len(tx.Message.Instructions) == 0 {
		return fmt.Errorf("transaction has no instructions")
	}

	seen := make(map[prt.PublicKey]struct{}, len(tx.Message.AccountKeys))
	for _, key := range tx.Message.AccountKeys {
		if _, ok := seen[key]; ok {
			return fmt.Errorf("account %s loaded twice", keyString(key))
		}
		seen[key] = struct{}{}
	}

	return tx.VerifySignatures()
}

// ValidateBalances checks that execution neither minted nor burned lamports
func ValidateBalances(before, after []*ledger.AccountInfo) error {
	var sumBefore, sumAfter uint64
	for i := range before {
		sumBefore += before[i].Lamports
		sumAfter += after[i].Lamports
	}
	if sumBefore != sumAfter {
		return fmt.Errorf("%w: %d != %d", ErrUnbalancedTransaction, sumBefore, sumAfter)
	}
	return nil
}

// ValidateReadonly checks that no readonly account changed during execution
func ValidateReadonly(msg *ledger.Message, before, after []*ledger.AccountInfo) error {
	for i := range before {
		if msg.IsWritable(i) {
			continue
		}
		if before[i].Lamports != after[i].Lamports ||
			before[i].Owner != after[i].Owner ||
			string(before[i].Data) != string(after[i].Data) {
			return ErrReadonlyAccount
		}
	}
	return nil
}

// accountIndex resolves the n-th account of an instruction
func accountIndex(ix ledger.CompiledInstruction, n int) (int, error) {
	if n >= len(ix.Accounts) {
		return 0, ErrNotEnoughAccountKeys
	}
	return int(ix.Accounts[n]), nil
}

func requireSigner(msg *ledger.Message, idx int) error {
	if !msg.IsSigner(idx) {
		return fmt.Errorf("%w: %s", ErrMissingRequiredSignature, keyString(msg.AccountKeys[idx]))
	}
	return nil
}

func requireWritable(msg *ledger.Message, idx int) error {
	if !msg.IsWritable(idx) {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, keyString(msg.AccountKeys[idx]))
	}
	return nil
}

func keyString(pk prt.PublicKey) string {
	return utils.PublicKeyToString(pk)
}
