package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	prt "github.com/abcfe/abcfe-calculator/protocol"
)

func GenerateKeyPair() (ed25519.PrivateKey, prt.PublicKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, prt.PublicKey{}, err
	}

	var pub prt.PublicKey
	copy(pub[:], publicKey)
	return privateKey, pub, nil
}

// Derive key pair from a 32 byte seed
func KeyPairFromSeed(seed []byte) (ed25519.PrivateKey, prt.PublicKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, prt.PublicKey{}, fmt.Errorf("invalid seed length: %d (need %d bytes)", len(seed), ed25519.SeedSize)
	}

	privateKey := ed25519.NewKeyFromSeed(seed)
	return privateKey, PublicKeyOf(privateKey), nil
}

// PublicKeyOf returns the public half of a private key
func PublicKeyOf(privateKey ed25519.PrivateKey) prt.PublicKey {
	var pub prt.PublicKey
	copy(pub[:], privateKey[ed25519.SeedSize:])
	return pub
}

// Helper function to convert 64 byte secret key (seed || public key) to private key
func BytesToPrivateKey(data []byte) (ed25519.PrivateKey, error) {
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: %d (need %d bytes)", len(data), ed25519.PrivateKeySize)
	}

	// The embedded public key must match the seed
	privateKey := ed25519.NewKeyFromSeed(data[:ed25519.SeedSize])
	if !privateKey.Equal(ed25519.PrivateKey(data)) {
		return nil, fmt.Errorf("private key does not match its public key")
	}

	return privateKey, nil
}
