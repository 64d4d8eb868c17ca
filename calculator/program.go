package calculator

import (
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// Apply folds one operation into the stored result.
// Arithmetic wraps modulo 2^32 in both directions.
func Apply(state StateRecord, req OperationRequest) StateRecord {
	switch req.Opcode {
	case OpAdd:
		state.Result = state.Result + req.Operand1 + req.Operand2
	case OpSub:
		state.Result = state.Result - req.Operand1 - req.Operand2
	}
	return state
}

// Process executes the calculator program against account, rewriting its data in place.
// The caller is responsible for having checked the account is writable.
func Process(programID prt.PublicKey, account *ledger.AccountInfo, data []byte) error {
	if account == nil {
		return fmt.Errorf("%w: no state account supplied", ErrAccountNotFound)
	}
	if account.Owner != programID {
		return fmt.Errorf("%w: account owned by %s", ErrIncorrectProgramID, utils.PublicKeyToString(account.Owner))
	}

	req, err := DecodeRequest(data)
	if err != nil {
		return err
	}
	state, err := DecodeState(account.Data)
	if err != nil {
		return err
	}

	state = Apply(state, req)
	account.Data = EncodeState(state)
	return nil
}
