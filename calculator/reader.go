package calculator

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-calculator/ledger"
)

// ReadResult fetches and decodes the current state of the account
func ReadResult(ctx context.Context, client ledger.Client, handle AccountHandle) (StateRecord, error) {
	info, err := client.GetAccountInfo(ctx, handle.Address)
	if err != nil {
		return StateRecord{}, fmt.Errorf("failed to read %s: %w", handle, err)
	}
	if info == nil {
		return StateRecord{}, fmt.Errorf("%w: %s", ErrAccountNotFound, handle)
	}

	return DecodeState(info.Data)
}
