package wallet

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// NewMnemonicWallet generates a fresh 12 word mnemonic and its keypair
func NewMnemonicWallet() (*MnemonicWallet, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	return RestoreMnemonicWallet(mnemonic, "")
}

// RestoreMnemonicWallet rebuilds the keypair of a mnemonic. The ed25519 seed is the
// first 32 bytes of the bip39 seed.
func RestoreMnemonicWallet(mnemonic, passphrase string) (*MnemonicWallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	keypair, err := KeypairFromSeed(seed[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}

	return &MnemonicWallet{
		Mnemonic: mnemonic,
		Seed:     seed,
		Keypair:  keypair,
	}, nil
}
