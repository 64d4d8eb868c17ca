package calculator

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// DefaultFeeBudget is how many dispatch transactions the payer must be able to afford
const DefaultFeeBudget = 100

// Session holds everything one run needs: the ledger connection, the payer and the account handle
type Session struct {
	client    ledger.Client
	payer     ledger.Signer
	programID prt.PublicKey
	handle    AccountHandle

	seed      string
	feeBudget uint64
}

type Option func(*Session)

// WithSeed overrides the derivation seed
func WithSeed(seed string) Option {
	return func(s *Session) {
		if seed != "" {
			s.seed = seed
		}
	}
}

// WithFeeBudget sets how many dispatches EstablishPayer funds
func WithFeeBudget(n uint64) Option {
	return func(s *Session) {
		if n > 0 {
			s.feeBudget = n
		}
	}
}

func NewSession(client ledger.Client, payer ledger.Signer, programID prt.PublicKey, opts ...Option) (*Session, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: ledger client is required", ErrInvalidInput)
	}
	if payer == nil {
		return nil, fmt.Errorf("%w: payer is required", ErrInvalidInput)
	}

	s := &Session{
		client:    client,
		payer:     payer,
		programID: programID,
		seed:      DefaultSeed,
		feeBudget: DefaultFeeBudget,
	}
	for _, opt := range opts {
		opt(s)
	}

	handle, err := NewAccountHandle(payer.PublicKey(), s.seed, programID)
	if err != nil {
		return nil, err
	}
	s.handle = handle

	return s, nil
}

func (s *Session) Handle() AccountHandle { return s.handle }

func (s *Session) Payer() ledger.Signer { return s.payer }

// EstablishPayer makes sure the payer can fund provisioning plus the fee budget, requesting an airdrop for any shortfall
func (s *Session) EstablishPayer(ctx context.Context) error {
	payer := s.payer.PublicKey()

	required, err := s.requiredBalance(ctx)
	if err != nil {
		return err
	}

	balance, err := s.client.GetBalance(ctx, payer)
	if err != nil {
		return fmt.Errorf("failed to get payer balance: %w", err)
	}
	if balance >= required {
		logger.Debug("payer ", utils.PublicKeyToString(payer), " balance ", balance, " covers ", required)
		return nil
	}

	shortfall := required - balance
	logger.Info("requesting airdrop of ", shortfall, " lamports for ", utils.PublicKeyToString(payer))

	sig, err := s.client.RequestAirdrop(ctx, payer, shortfall)
	if err != nil {
		return fmt.Errorf("%w: airdrop of %d lamports: %w", ErrInsufficientFunds, shortfall, err)
	}
	if err := s.client.ConfirmTransaction(ctx, sig); err != nil {
		return fmt.Errorf("%w: airdrop %s: %w", ErrInsufficientFunds, utils.SignatureToString(sig), err)
	}

	balance, err = s.client.GetBalance(ctx, payer)
	if err != nil {
		return fmt.Errorf("failed to get payer balance: %w", err)
	}
	if balance < required {
		return fmt.Errorf("%w: payer has %d lamports, needs %d", ErrInsufficientFunds, balance, required)
	}
	return nil
}

func (s *Session) requiredBalance(ctx context.Context) (uint64, error) {
	var required uint64

	info, err := s.client.GetAccountInfo(ctx, s.handle.Address)
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s: %w", s.handle, err)
	}
	if info == nil {
		rent, err := s.client.GetMinimumBalanceForRentExemption(ctx, s.handle.Size)
		if err != nil {
			return 0, fmt.Errorf("failed to get rent exemption: %w", err)
		}
		required += rent
	}

	blockhash, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	ix := NewOperationInstruction(s.handle, OperationRequest{Opcode: OpAdd})
	msg, err := ledger.NewMessage(s.payer.PublicKey(), blockhash, ix)
	if err != nil {
		return 0, err
	}
	fee, err := s.client.GetFeeForMessage(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to get fee for message: %w", err)
	}

	return required + fee*s.feeBudget, nil
}

// EnsureProgramDeployed checks the program account exists and is executable
func (s *Session) EnsureProgramDeployed(ctx context.Context) error {
	info, err := s.client.GetAccountInfo(ctx, s.programID)
	if err != nil {
		return fmt.Errorf("failed to look up program %s: %w", utils.PublicKeyToString(s.programID), err)
	}
	if info == nil {
		return fmt.Errorf("%w: %s does not exist", ErrProgramNotDeployed, utils.PublicKeyToString(s.programID))
	}
	if !info.Executable {
		return fmt.Errorf("%w: %s is not executable", ErrProgramNotDeployed, utils.PublicKeyToString(s.programID))
	}
	return nil
}

func (s *Session) EnsureProvisioned(ctx context.Context) error {
	return EnsureProvisioned(ctx, s.client, s.handle, s.payer)
}

func (s *Session) Dispatch(ctx context.Context, opName string, operand1, operand2 uint32) error {
	return Dispatch(ctx, s.client, opName, operand1, operand2, s.handle, s.payer)
}

func (s *Session) ReadResult(ctx context.Context) (StateRecord, error) {
	return ReadResult(ctx, s.client, s.handle)
}

// Run performs one complete operation and returns the stored result afterwards
func (s *Session) Run(ctx context.Context, opName string, operand1, operand2 uint32) (StateRecord, error) {
	// Reject bad operations before anything touches the ledger
	if _, err := ParseOpcode(opName); err != nil {
		return StateRecord{}, err
	}

	if err := s.EstablishPayer(ctx); err != nil {
		return StateRecord{}, err
	}
	if err := s.EnsureProgramDeployed(ctx); err != nil {
		return StateRecord{}, err
	}
	if err := s.EnsureProvisioned(ctx); err != nil {
		return StateRecord{}, err
	}
	if err := s.Dispatch(ctx, opName, operand1, operand2); err != nil {
		return StateRecord{}, err
	}
	return s.ReadResult(ctx)
}
