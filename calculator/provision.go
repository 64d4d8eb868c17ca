package calculator

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
)

// EnsureProvisioned creates the account described by handle unless it already exists.
// Safe to call before every operation.
func EnsureProvisioned(ctx context.Context, client ledger.Client, handle AccountHandle, payer ledger.Signer) error {
	if handle.Base != payer.PublicKey() {
		return fmt.Errorf("%w: account %s is derived from %s, not from the payer",
			ErrInvalidInput, handle, utils.PublicKeyToString(handle.Base))
	}

	info, err := client.GetAccountInfo(ctx, handle.Address)
	if err != nil {
		return fmt.Errorf("%w: lookup %s: %w", ErrProvisioningFailed, handle, err)
	}
	if info != nil {
		logger.Debug("calculator account already provisioned: ", handle)
		return nil
	}

	lamports, err := client.GetMinimumBalanceForRentExemption(ctx, handle.Size)
	if err != nil {
		return fmt.Errorf("%w: rent exemption for %d bytes: %w", ErrProvisioningFailed, handle.Size, err)
	}

	logger.Info("creating calculator account ", handle, " size=", handle.Size, " lamports=", lamports)

	ix := ledger.CreateAccountWithSeed(
		payer.PublicKey(),
		handle.Address,
		handle.Base,
		handle.Seed,
		lamports,
		handle.Size,
		handle.Owner,
	)

	_, sendErr := ledger.SendAndConfirm(ctx, client, []ledger.Signer{payer}, ix)
	if sendErr == nil {
		logger.Info("calculator account created: ", handle)
		return nil
	}

	// Another client may have created it between the lookup and the submission
	info, err = client.GetAccountInfo(ctx, handle.Address)
	if err == nil && info != nil {
		logger.Info("calculator account created concurrently: ", handle)
		return nil
	}

	logger.Error("failed to create calculator account ", handle, ": ", sendErr)
	return fmt.Errorf("%w: create %s: %w", ErrProvisioningFailed, handle, sendErr)
}
