package core

import (
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// executeSystem runs one system program instruction against the working set
func (p *Ledger) executeSystem(msg *ledger.Message, ix ledger.CompiledInstruction, accounts []*ledger.AccountInfo) error {
	sysIx, err := ledger.DecodeSystemInstruction(ix.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}

	switch sysIx.Kind {
	case ledger.SystemCreateAccount:
		from, to, err := fundingPair(msg, ix)
		if err != nil {
			return err
		}
		if err := requireSigner(msg, to); err != nil {
			return err
		}
		return allocate(accounts[from], accounts[to], msg.AccountKeys[from], msg.AccountKeys[to], sysIx)

	case ledger.SystemCreateAccountWithSeed:
		from, to, err := fundingPair(msg, ix)
		if err != nil {
			return err
		}

		// The base must sign; it is the funder unless listed third
		base := from
		if len(ix.Accounts) > 2 {
			base = int(ix.Accounts[2])
		}
		if msg.AccountKeys[base] != sysIx.Base {
			return fmt.Errorf("%w: base %s not signed for", ErrMissingRequiredSignature, keyString(sysIx.Base))
		}
		if err := requireSigner(msg, base); err != nil {
			return err
		}

		expected, err := crypto.CreateWithSeed(sysIx.Base, sysIx.Seed, sysIx.Owner)
		if err != nil {
			return err
		}
		if expected != msg.AccountKeys[to] {
			return fmt.Errorf("%w: expected %s, got %s", ErrAddressMismatch, keyString(expected), keyString(msg.AccountKeys[to]))
		}
		return allocate(accounts[from], accounts[to], msg.AccountKeys[from], msg.AccountKeys[to], sysIx)

	case ledger.SystemAssign:
		idx, err := accountIndex(ix, 0)
		if err != nil {
			return err
		}
		if err := requireSigner(msg, idx); err != nil {
			return err
		}
		if err := requireWritable(msg, idx); err != nil {
			return err
		}
		if accounts[idx].Owner != prt.SystemProgramID {
			return fmt.Errorf("%w: %s is not owned by the system program", ErrInvalidAccountData, keyString(msg.AccountKeys[idx]))
		}
		accounts[idx].Owner = sysIx.Owner
		return nil

	case ledger.SystemTransfer:
		from, to, err := fundingPair(msg, ix)
		if err != nil {
			return err
		}
		return transfer(accounts[from], accounts[to], msg.AccountKeys[from], sysIx.Lamports)

	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidInstructionData, sysIx.Kind)
	}
}

// fundingPair resolves the signing source and the writable destination of an instruction
func fundingPair(msg *ledger.Message, ix ledger.CompiledInstruction) (int, int, error) {
	from, err := accountIndex(ix, 0)
	if err != nil {
		return 0, 0, err
	}
	to, err := accountIndex(ix, 1)
	if err != nil {
		return 0, 0, err
	}

	if err := requireSigner(msg, from); err != nil {
		return 0, 0, err
	}
	if err := requireWritable(msg, from); err != nil {
		return 0, 0, err
	}
	if err := requireWritable(msg, to); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func transfer(from, to *ledger.AccountInfo, fromKey prt.PublicKey, lamports uint64) error {
	if from.Owner != prt.SystemProgramID || len(from.Data) != 0 {
		return fmt.Errorf("%w: from %s must not carry data", ErrInvalidAccountData, keyString(fromKey))
	}
	if from.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d lamports, needs %d", ErrInsufficientFunds, keyString(fromKey), from.Lamports, lamports)
	}

	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// allocate funds, sizes and assigns a previously unused account
func allocate(from, to *ledger.AccountInfo, fromKey, toKey prt.PublicKey, sysIx *ledger.SystemInstruction) error {
	if !isUnused(to) {
		return fmt.Errorf("%w: %s", ErrAccountInUse, keyString(toKey))
	}
	if sysIx.Space > MaxAccountDataSize {
		return fmt.Errorf("%w: space %d exceeds %d", ErrInvalidInstructionData, sysIx.Space, MaxAccountDataSize)
	}

	rent := MinimumBalanceForRentExemption(sysIx.Space)
	if sysIx.Lamports < rent {
		return fmt.Errorf("%w: %s needs %d lamports, got %d", ErrInsufficientFundsForRent, keyString(toKey), rent, sysIx.Lamports)
	}

	if err := transfer(from, to, fromKey, sysIx.Lamports); err != nil {
		return err
	}

	to.Data = make([]byte, sysIx.Space)
	to.Owner = sysIx.Owner
	return nil
}
