package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcfe/abcfe-calculator/common/utils"
)

func TestLoadBundledConfig(t *testing.T) {
	cfg, err := NewConfig("config.toml")
	require.NoError(t, err)

	assert.Equal(t, "localnet", cfg.Common.NetworkID)
	assert.Equal(t, "rpc", cfg.Network.Mode)
	assert.Equal(t, "IamTheCalculator", cfg.Program.Seed)
	assert.Equal(t, uint64(5000), cfg.Fee.LamportsPerSignature)
	assert.Equal(t, 1.0, cfg.Server.AirdropPerSecond)
	assert.Equal(t, []string{"CaLcuLatoR1111111111111111111111111111111111"}, cfg.Genesis.Programs)

	// ~ is expanded
	assert.Equal(t, filepath.Join(utils.HomeDir(), ".abcfe-calculator/wallet"), cfg.Wallet.Path)
	assert.Equal(t, filepath.Join(cfg.Wallet.Path, "id.json"), cfg.WalletFile(cfg.Wallet.KeypairFile))
}

func TestDefaultsFillZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Common]\nNetworkID = \"devnet\"\n"), 0600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "devnet", cfg.Common.NetworkID)
	assert.Equal(t, "calculator", cfg.Common.ServiceName)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Network.RPCURL)
	assert.Equal(t, "confirmed", cfg.Network.Commitment)
	assert.Equal(t, 60, cfg.Network.TimeoutSec)
	assert.Equal(t, 500, cfg.Network.PollIntervalMs)
	assert.Equal(t, uint64(100), cfg.Payer.FeeBudgetTxs)
	assert.Equal(t, 8899, cfg.Server.RestPort)
	assert.Empty(t, cfg.Network.WSURL)
	assert.Zero(t, cfg.Genesis.FaucetLamports)
}

func TestNewConfigErrors(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Common\n"), 0600))
	_, err = NewConfig(path)
	assert.Error(t, err)
}

func TestWalletFile(t *testing.T) {
	cfg := Default()
	cfg.Wallet.Path = "/wallets"

	assert.Equal(t, "/wallets/id.json", cfg.WalletFile("id.json"))
	assert.Equal(t, "/abs/key.json", cfg.WalletFile("/abs/key.json"))
	assert.Empty(t, cfg.WalletFile(""))
}
