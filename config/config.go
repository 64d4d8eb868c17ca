package config

import (
	"os"
	"path"

	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/naoina/toml"
)

type Common struct {
	Level       string // local, dev, prod
	ServiceName string
	NetworkID   string // localnet, devnet, testnet
}

type LogInfo struct {
	Path       string
	MaxAgeHour int
	RotateHour int
}

// Network ledger connection settings
type Network struct {
	Mode           string `toml:"Mode"` // rpc, local
	RPCURL         string `toml:"RPCURL"`
	WSURL          string `toml:"WSURL"` // empty disables websocket confirmation
	Commitment     string `toml:"Commitment"`
	TimeoutSec     int    `toml:"TimeoutSec"`
	PollIntervalMs int    `toml:"PollIntervalMs"`
}

type Wallet struct {
	Path         string `toml:"Path"`
	KeypairFile  string `toml:"KeypairFile"`
	KeystoreFile string `toml:"KeystoreFile"` // used when set, unlocked with CALCULATOR_KEYSTORE_PASSPHRASE
}

// Program deployed calculator program
type Program struct {
	ID          string `toml:"ID"`          // base58 program id
	KeypairFile string `toml:"KeypairFile"` // alternative to ID
	Seed        string `toml:"Seed"`
}

// Payer fee budget settings
type Payer struct {
	FeeBudgetTxs uint64 `toml:"FeeBudgetTxs"` // number of transactions the payer should afford
}

type DB struct {
	Path string
}

type Server struct {
	RestPort           int     `toml:"RestPort"`
	AirdropPerSecond   float64 `toml:"AirdropPerSecond"`
	AirdropBurst       int     `toml:"AirdropBurst"`
	MaxAirdropLamports uint64  `toml:"MaxAirdropLamports"`
}

// Genesis local ledger initial state
type Genesis struct {
	FaucetLamports uint64   `toml:"FaucetLamports"` // 0 disables airdrops
	Programs       []string `toml:"Programs"`       // executable program ids loaded at genesis
}

// Fee local ledger fee schedule
type Fee struct {
	LamportsPerSignature uint64 `toml:"LamportsPerSignature"`
}

type Config struct {
	Common  Common
	LogInfo LogInfo
	Network Network
	Wallet  Wallet
	Program Program
	Payer   Payer
	DB      DB
	Server  Server
	Genesis Genesis
	Fee     Fee
}

func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		workDir, _ := os.Getwd()
		rootDir := utils.FindProjectRoot(workDir)
		filepath = path.Join(rootDir, "config", "config.toml")
	}

	if file, err := os.Open(filepath); err != nil {
		return nil, err
	} else {
		defer file.Close()

		c := new(Config)
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, err
		} else {
			c.sanitize()
			return c, nil
		}
	}
}

// Default config used when no file is available (tests, in-process ledger)
func Default() *Config {
	c := new(Config)
	c.sanitize()
	return c
}

func (p *Config) sanitize() {
	p.LogInfo.Path = utils.ExpandPath(p.LogInfo.Path)
	p.Wallet.Path = utils.ExpandPath(p.Wallet.Path)
	p.DB.Path = utils.ExpandPath(p.DB.Path)

	if p.Common.ServiceName == "" {
		p.Common.ServiceName = "calculator"
	}
	if p.Network.Mode == "" {
		p.Network.Mode = "rpc"
	}
	if p.Network.RPCURL == "" {
		p.Network.RPCURL = "http://127.0.0.1:8899"
	}
	if p.Network.Commitment == "" {
		p.Network.Commitment = "confirmed"
	}
	if p.Network.TimeoutSec <= 0 {
		p.Network.TimeoutSec = 60
	}
	if p.Network.PollIntervalMs <= 0 {
		p.Network.PollIntervalMs = 500
	}
	if p.Wallet.KeypairFile == "" {
		p.Wallet.KeypairFile = "id.json"
	}
	if p.Program.Seed == "" {
		p.Program.Seed = "IamTheCalculator"
	}
	if p.Payer.FeeBudgetTxs == 0 {
		p.Payer.FeeBudgetTxs = 100
	}
	if p.Server.RestPort == 0 {
		p.Server.RestPort = 8899
	}
	if p.Server.AirdropBurst <= 0 {
		p.Server.AirdropBurst = 5
	}
	if p.Fee.LamportsPerSignature == 0 {
		p.Fee.LamportsPerSignature = 5000
	}
}

func (p *Config) GetConfig() *Config {
	return p
}

func (p *Config) GetLogInfoConfig() *LogInfo {
	return &p.LogInfo
}

// WalletFile returns the full path of a file inside the wallet directory
func (p *Config) WalletFile(name string) string {
	if name == "" || path.IsAbs(name) {
		return name
	}
	return path.Join(p.Wallet.Path, name)
}
