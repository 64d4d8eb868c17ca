package app

import (
	"fmt"
	"time"

	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/logger"
	conf "github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/abcfe/abcfe-calculator/ledger"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	"github.com/abcfe/abcfe-calculator/storage"
	"github.com/abcfe/abcfe-calculator/wallet"
)

const (
	ModeRPC   = "rpc"
	ModeLocal = "local"
)

// ClientSession is a calculator session plus the resources backing its ledger client
type ClientSession struct {
	*calculator.Session
	Client  ledger.Client
	Timeout time.Duration

	closeFn func() error
}

// Close releases the ledger connection. Safe on a nil receiver.
func (s *ClientSession) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// NewLedgerClient connects to the ledger named by cfg.Network.Mode.
// In local mode the ledger database is opened in process, so no localnet may hold it at the same time.
func NewLedgerClient(cfg *conf.Config) (ledger.Client, func() error, error) {
	switch cfg.Network.Mode {
	case ModeRPC:
		opts := []rpc.Option{
			rpc.WithCommitment(cfg.Network.Commitment),
			rpc.WithPollInterval(time.Duration(cfg.Network.PollIntervalMs) * time.Millisecond),
		}
		if cfg.Network.WSURL != "" {
			opts = append(opts, rpc.WithWebsocket(cfg.Network.WSURL))
		}
		logger.Debug("using JSON-RPC ledger at ", cfg.Network.RPCURL)
		return rpc.NewClient(cfg.Network.RPCURL, opts...), func() error { return nil }, nil

	case ModeLocal:
		db, err := storage.InitDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local ledger: %w", err)
		}
		l, err := core.NewLedger(db, cfg)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to load local ledger: %w", err)
		}
		logger.Debug("using in-process ledger at ", cfg.DB.Path)
		return core.NewLocalClient(l), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown network mode %q", calculator.ErrInvalidInput, cfg.Network.Mode)
	}
}

// NewClientSession loads the payer and program id from cfg and opens a calculator session against the configured ledger
func NewClientSession(cfg *conf.Config) (*ClientSession, error) {
	payer, err := wallet.LoadSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: payer: %w", calculator.ErrInvalidInput, err)
	}
	programID, err := wallet.LoadProgramID(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: program: %w", calculator.ErrInvalidInput, err)
	}

	client, closeFn, err := NewLedgerClient(cfg)
	if err != nil {
		return nil, err
	}

	session, err := calculator.NewSession(client, payer, programID,
		calculator.WithSeed(cfg.Program.Seed),
		calculator.WithFeeBudget(cfg.Payer.FeeBudgetTxs),
	)
	if err != nil {
		closeFn()
		return nil, err
	}

	return &ClientSession{
		Session: session,
		Client:  client,
		Timeout: time.Duration(cfg.Network.TimeoutSec) * time.Second,
		closeFn: closeFn,
	}, nil
}
