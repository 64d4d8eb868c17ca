package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcfe/abcfe-calculator/calculator"
	conf "github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/abcfe/abcfe-calculator/wallet"
)

const testProgram = "CaLcuLatoR1111111111111111111111111111111111"

func localConfig(t *testing.T) *conf.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := conf.Default()
	cfg.Common.NetworkID = "test"
	cfg.Network.Mode = ModeLocal
	cfg.DB.Path = filepath.Join(dir, "db")
	cfg.Wallet.Path = dir
	cfg.Program.ID = testProgram
	cfg.Genesis.FaucetLamports = 10 * prt.LamportsPerSol
	cfg.Genesis.Programs = []string{testProgram}

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)
	require.NoError(t, wallet.SaveKeypairFile(cfg.WalletFile(cfg.Wallet.KeypairFile), kp))
	return cfg
}

func TestLocalClientSession(t *testing.T) {
	cfg := localConfig(t)

	session, err := NewClientSession(cfg)
	require.NoError(t, err)

	state, err := session.Run(context.Background(), "add", 40, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), state.Result)
	require.NoError(t, session.Close())

	// The ledger persists between sessions
	session, err = NewClientSession(cfg)
	require.NoError(t, err)
	defer session.Close()

	state, err = session.ReadResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), state.Result)
}

func TestClientSessionErrors(t *testing.T) {
	cfg := localConfig(t)
	cfg.Network.Mode = "carrier-pigeon"
	_, err := NewClientSession(cfg)
	require.ErrorIs(t, err, calculator.ErrInvalidInput)

	cfg = localConfig(t)
	cfg.Program.ID = ""
	_, err = NewClientSession(cfg)
	require.ErrorIs(t, err, calculator.ErrInvalidInput)

	cfg = localConfig(t)
	cfg.Wallet.KeypairFile = "missing.json"
	_, err = NewClientSession(cfg)
	require.ErrorIs(t, err, calculator.ErrInvalidInput)
}

func TestRPCLedgerClient(t *testing.T) {
	cfg := conf.Default()
	cfg.Network.WSURL = "ws://127.0.0.1:8900/ws"

	client, closeFn, err := NewLedgerClient(cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &rpc.Client{}, client)
}
