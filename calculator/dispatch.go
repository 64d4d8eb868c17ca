package calculator

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
)

// NewOperationInstruction builds the program instruction carrying an encoded request
func NewOperationInstruction(handle AccountHandle, req OperationRequest) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: handle.Owner,
		Accounts: []ledger.AccountMeta{
			{PublicKey: handle.Address, IsSigner: false, IsWritable: true},
		},
		Data: EncodeRequest(req),
	}
}

// Dispatch submits one operation against the provisioned account and waits for confirmation.
// It is never retried here: a resubmission after an ambiguous failure could apply twice.
func Dispatch(ctx context.Context, client ledger.Client, opName string, operand1, operand2 uint32, handle AccountHandle, payer ledger.Signer) error {
	op, err := ParseOpcode(opName)
	if err != nil {
		return err
	}

	req := OperationRequest{Opcode: op, Operand1: operand1, Operand2: operand2}
	ix := NewOperationInstruction(handle, req)

	sig, err := ledger.SendAndConfirm(ctx, client, []ledger.Signer{payer}, ix)
	if err != nil {
		logger.Error("operation ", op, " ", operand1, " ", operand2, " failed: ", err)
		return fmt.Errorf("%w: %s %d %d on %s: %w", ErrDispatchFailed, op, operand1, operand2, handle, err)
	}

	logger.Info("operation ", op, " ", operand1, " ", operand2, " confirmed: ", utils.SignatureToString(sig))
	return nil
}
