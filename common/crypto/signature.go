package crypto

import (
	"crypto/ed25519"
	"fmt"

	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// SignData performs ed25519 signature on data
func SignData(privateKey ed25519.PrivateKey, data []byte) (prt.Signature, error) {
	var sig prt.Signature

	if len(privateKey) != ed25519.PrivateKeySize {
		return sig, fmt.Errorf("private key is not set")
	}

	copy(sig[:], ed25519.Sign(privateKey, data))
	return sig, nil
}

// VerifySignature verifies ed25519 signature
func VerifySignature(publicKey prt.PublicKey, data []byte, sig prt.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(publicKey[:]), data, sig[:])
}
