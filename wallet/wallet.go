package wallet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/config"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// WalletManager creates, restores and persists the payer identity inside one directory
type WalletManager struct {
	walletDir string
	Wallet    *MnemonicWallet
}

func NewWalletManager(walletDir string) *WalletManager {
	return &WalletManager{walletDir: walletDir}
}

func (wm *WalletManager) Dir() string {
	return wm.walletDir
}

// Create new wallet
func (wm *WalletManager) CreateWallet() (*MnemonicWallet, error) {
	w, err := NewMnemonicWallet()
	if err != nil {
		return nil, err
	}
	wm.Wallet = w
	return w, nil
}

// Restore wallet from mnemonic
func (wm *WalletManager) RestoreWallet(mnemonic string) (*MnemonicWallet, error) {
	w, err := RestoreMnemonicWallet(mnemonic, "")
	if err != nil {
		return nil, err
	}
	wm.Wallet = w
	return w, nil
}

// SaveKeypair writes the current wallet keypair as name inside the wallet directory
func (wm *WalletManager) SaveKeypair(name string) (string, error) {
	if wm.Wallet == nil || wm.Wallet.Keypair == nil {
		return "", fmt.Errorf("no wallet loaded")
	}

	path := wm.path(name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("keypair file already exists: %s", path)
	}
	if err := SaveKeypairFile(path, wm.Wallet.Keypair); err != nil {
		return "", err
	}

	logger.Info("keypair saved: ", path)
	return path, nil
}

// EncryptKeypair seals an existing keypair file into a keystore file
func (wm *WalletManager) EncryptKeypair(keypairName, keystoreName, passphrase string, scryptN int) (string, error) {
	kp, err := LoadKeypairFile(wm.path(keypairName))
	if err != nil {
		return "", err
	}

	ks, err := EncryptKeypair(kp, passphrase, scryptN)
	if err != nil {
		return "", err
	}

	path := wm.path(keystoreName)
	if err := SaveKeystoreFile(path, ks); err != nil {
		return "", err
	}

	logger.Info("keystore saved: ", path)
	return path, nil
}

func (wm *WalletManager) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(wm.walletDir, name)
}

// LoadSigner loads the payer configured in cfg. A keystore takes precedence over a plain keypair file.
func LoadSigner(cfg *config.Config) (*Keypair, error) {
	if cfg.Wallet.KeystoreFile != "" {
		passphrase, ok := os.LookupEnv(PassphraseEnv)
		if !ok {
			return nil, fmt.Errorf("keystore %s is configured but %s is not set", cfg.Wallet.KeystoreFile, PassphraseEnv)
		}

		ks, err := LoadKeystoreFile(cfg.WalletFile(cfg.Wallet.KeystoreFile))
		if err != nil {
			return nil, err
		}
		return DecryptKeystore(ks, passphrase)
	}

	return LoadKeypairFile(cfg.WalletFile(cfg.Wallet.KeypairFile))
}

// LoadProgramID resolves the calculator program id from an explicit id or a program keypair file
func LoadProgramID(cfg *config.Config) (prt.PublicKey, error) {
	if cfg.Program.ID != "" {
		id, err := utils.StringToPublicKey(cfg.Program.ID)
		if err != nil {
			return prt.PublicKey{}, fmt.Errorf("invalid program id %q: %w", cfg.Program.ID, err)
		}
		return id, nil
	}

	if cfg.Program.KeypairFile != "" {
		kp, err := LoadKeypairFile(utils.ExpandPath(cfg.Program.KeypairFile))
		if err != nil {
			return prt.PublicKey{}, fmt.Errorf("failed to load program keypair: %w", err)
		}
		return kp.PublicKey(), nil
	}

	return prt.PublicKey{}, fmt.Errorf("no program id configured")
}
