package calculator

import (
	"errors"
)

// Error kinds. Failures wrap one kind together with their cause, so both
// errors.Is(err, ErrDispatchFailed) and errors.As on the cause work.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrMalformedState     = errors.New("malformed state")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrProvisioningFailed = errors.New("provisioning failed")
	ErrDispatchFailed     = errors.New("dispatch failed")
	ErrAccountNotFound    = errors.New("account not found")
	ErrProgramNotDeployed = errors.New("program not deployed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrIncorrectProgramID = errors.New("incorrect program id")
)

type errorKind struct {
	err     error
	code    int
	message string
}

var errorKinds = []errorKind{
	{ErrInvalidInput, 2, "invalid input"},
	{ErrUnknownOperation, 3, "unknown operation, expected add or sub"},
	{ErrMalformedState, 4, "calculator account holds malformed state"},
	{ErrAccountNotFound, 5, "calculator account does not exist, run an operation first to provision it"},
	{ErrProgramNotDeployed, 6, "calculator program is not deployed on this ledger"},
	{ErrInsufficientFunds, 7, "payer cannot cover fees and rent"},
	{ErrProvisioningFailed, 8, "failed to provision the calculator account"},
	{ErrDispatchFailed, 9, "failed to submit the operation"},
}

// ExitCode maps an error to the process exit status for its kind
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return 1
}

// Describe returns the user facing message for an error
func Describe(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.message + ": " + err.Error()
		}
	}
	return err.Error()
}
