package core

import (
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/syndtr/goleveldb/leveldb"
)

// TxStatus is the recorded outcome of a processed transaction
type TxStatus struct {
	Slot             uint64 `json:"slot"`
	Fee              uint64 `json:"fee"`
	Err              string `json:"err,omitempty"`
	InstructionIndex int    `json:"instructionIndex"`
}

// Failed reports whether the transaction executed with an error
func (s *TxStatus) Failed() bool {
	return s.Err != ""
}

// TransactionError converts a failed status into the error clients receive
func (s *TxStatus) TransactionError(sig prt.Signature) error {
	if !s.Failed() {
		return nil
	}
	return &ledger.TransactionError{Signature: sig, InstructionIndex: s.InstructionIndex, Reason: s.Err}
}

// instructionError marks a failure during execution of one instruction
type instructionError struct {
	index int
	err   error
}

func (e *instructionError) Error() string {
	return fmt.Sprintf("instruction %d: %v", e.index, e.err)
}

func (e *instructionError) Unwrap() error { return e.err }

// ProcessTransaction verifies, executes and commits one transaction in its own slot.
// Transactions rejected before execution leave no trace and return an error. Transactions
// that fail during execution still pay the fee and have their failure recorded.
func (p *Ledger) ProcessTransaction(tx *ledger.Transaction) (prt.Signature, error) {
	sig := tx.Signature()

	raw, err := tx.MarshalBinary()
	if err != nil {
		return sig, err
	}

	p.mu.Lock()
	status, err := p.processLocked(tx, raw)
	p.mu.Unlock()
	if err != nil {
		logger.Debug("transaction rejected: ", utils.SignatureToString(sig), " ", err)
		return sig, err
	}

	if status.Failed() {
		logger.Info("transaction failed: ", utils.SignatureToString(sig), " ", status.Err)
	} else {
		logger.Debug("transaction processed: ", utils.SignatureToString(sig), " slot=", status.Slot)
	}

	p.publish(sig, *status)
	return sig, nil
}

func (p *Ledger) processLocked(tx *ledger.Transaction, raw []byte) (*TxStatus, error) {
	sig := tx.Signature()
	msg := &tx.Message

	if err := ValidateTransaction(tx); err != nil {
		return nil, err
	}

	processed, err := p.db.Has(utils.GetTxStatusKey(sig), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check transaction status: %w", err)
	}
	if processed {
		return nil, ErrAlreadyProcessed
	}

	valid, err := p.isBlockhashValid(msg.RecentBlockhash)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: %s", ErrBlockhashNotFound, utils.HashToString(msg.RecentBlockhash))
	}

	// Load every referenced account into a working set
	accounts := make([]*ledger.AccountInfo, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		account, err := p.getAccount(key)
		if err != nil {
			return nil, err
		}
		accounts[i] = cloneAccount(account)
	}

	fee := p.FeeForSignatures(int(msg.Header.NumRequiredSignatures))
	payer := accounts[0]
	if payer.Owner != prt.SystemProgramID || len(payer.Data) != 0 || payer.Lamports < fee {
		return nil, fmt.Errorf("%w: %s has %d lamports, fee is %d",
			ErrInsufficientFundsForFee, utils.PublicKeyToString(msg.FeePayer()), payer.Lamports, fee)
	}

	status := &TxStatus{Fee: fee, InstructionIndex: -1}

	// Fee-only state, committed as is when execution fails
	charged := accounts
	charged[0].Lamports -= fee

	executed := make([]*ledger.AccountInfo, len(charged))
	for i, account := range charged {
		executed[i] = cloneAccount(account)
	}

	err = p.execute(msg, executed)
	if err == nil {
		err = ValidateReadonly(msg, charged, executed)
	}
	if err == nil {
		err = ValidateBalances(charged, executed)
	}
	if err != nil {
		status.Err = err.Error()
		var ixErr *instructionError
		if errors.As(err, &ixErr) {
			status.InstructionIndex = ixErr.index
			status.Err = ixErr.err.Error()
		}
		executed = charged
	}

	batch := new(leveldb.Batch)
	for i, key := range msg.AccountKeys {
		if !msg.IsWritable(i) {
			continue
		}
		if err := putAccount(batch, key, executed[i]); err != nil {
			return nil, err
		}
	}

	slot, hash := p.advanceSlot(batch, sig[:])
	status.Slot = slot

	statusData, err := utils.SerializeData(status, utils.SerializationFormatGob)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize status: %w", err)
	}
	batch.Put(utils.GetTxKey(sig), raw)
	batch.Put(utils.GetTxStatusKey(sig), statusData)
	batch.Put([]byte(prt.PrefixMetaTxCount), utils.Uint64ToBytes(p.TxCount+1))

	if err := p.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	p.LatestSlot = slot
	p.LatestBlockhash = hash
	p.TxCount++

	return status, nil
}

// execute runs every instruction against the working set in order
func (p *Ledger) execute(msg *ledger.Message, accounts []*ledger.AccountInfo) error {
	for i, ix := range msg.Instructions {
		programID := msg.AccountKeys[ix.ProgramIDIndex]

		var err error
		switch {
		case programID == prt.SystemProgramID:
			err = p.executeSystem(msg, ix, accounts)
		case p.IsProgram(programID):
			err = p.executeCalculator(msg, programID, ix, accounts)
		default:
			err = fmt.Errorf("%w: %s", ErrProgramNotFound, utils.PublicKeyToString(programID))
		}
		if err != nil {
			return &instructionError{index: i, err: err}
		}
	}
	return nil
}

// executeCalculator runs the calculator program on its single state account
func (p *Ledger) executeCalculator(msg *ledger.Message, programID prt.PublicKey, ix ledger.CompiledInstruction, accounts []*ledger.AccountInfo) error {
	if len(ix.Accounts) < 1 {
		return ErrNotEnoughAccountKeys
	}

	idx := int(ix.Accounts[0])
	if !msg.IsWritable(idx) {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, utils.PublicKeyToString(msg.AccountKeys[idx]))
	}

	return calculator.Process(programID, accounts[idx], ix.Data)
}

// GetSignatureStatus returns the recorded status of a transaction, or nil if it was never processed
func (p *Ledger) GetSignatureStatus(sig prt.Signature) (*TxStatus, error) {
	data, err := p.db.Get(utils.GetTxStatusKey(sig), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	var status TxStatus
	if err := utils.DeserializeData(data, &status, utils.SerializationFormatGob); err != nil {
		return nil, fmt.Errorf("failed to deserialize status: %w", err)
	}
	return &status, nil
}

// GetTransaction returns a processed transaction, or nil if it is unknown
func (p *Ledger) GetTransaction(sig prt.Signature) (*ledger.Transaction, error) {
	raw, err := p.db.Get(utils.GetTxKey(sig), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return ledger.UnmarshalTransaction(raw)
}
