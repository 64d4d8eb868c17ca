package utils

import (
	"crypto/sha256"

	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// HashBytes hashes the concatenation of parts with sha256
func HashBytes(parts ...[]byte) prt.Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}

	var hash prt.Hash
	copy(hash[:], h.Sum(nil))
	return hash
}
