package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// Keypair is an ed25519 identity able to sign ledger transactions
type Keypair struct {
	privateKey ed25519.PrivateKey
	publicKey  prt.PublicKey
}

var _ ledger.Signer = (*Keypair)(nil)

func NewKeypair() (*Keypair, error) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &Keypair{privateKey: priv, publicKey: pub}, nil
}

// KeypairFromSeed derives the keypair of a 32 byte ed25519 seed
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	priv, pub, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return &Keypair{privateKey: priv, publicKey: pub}, nil
}

// KeypairFromSecret loads a 64 byte secret key (seed || public key)
func KeypairFromSecret(secret []byte) (*Keypair, error) {
	priv, err := crypto.BytesToPrivateKey(secret)
	if err != nil {
		return nil, err
	}
	return &Keypair{privateKey: priv, publicKey: crypto.PublicKeyOf(priv)}, nil
}

func (k *Keypair) PublicKey() prt.PublicKey {
	return k.publicKey
}

func (k *Keypair) Sign(message []byte) (prt.Signature, error) {
	return crypto.SignData(k.privateKey, message)
}

// Address returns the base58 public key
func (k *Keypair) Address() string {
	return utils.PublicKeyToString(k.publicKey)
}

// Secret returns a copy of the 64 byte secret key
func (k *Keypair) Secret() []byte {
	return append([]byte(nil), k.privateKey...)
}

// LoadKeypairFile reads a keypair stored as a JSON array of 64 byte values
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}

	var secret []byte
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse keypair file %s: %w", path, err)
	}
	for _, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair file %s: byte value %d out of range", path, v)
		}
		secret = append(secret, byte(v))
	}

	return KeypairFromSecret(secret)
}

// SaveKeypairFile writes the keypair as a JSON byte array readable by other ledger tooling
func SaveKeypairFile(path string, k *Keypair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	values := make([]int, len(k.privateKey))
	for i, b := range k.privateKey {
		values[i] = int(b)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return nil
}
