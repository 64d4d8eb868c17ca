package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/utils"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrIllegalOwner          = errors.New("provided owner is not allowed")
)

// CreateWithSeed derives an account address from a base key, a seed string and the owning program.
// address = sha256(base || seed || owner)
func CreateWithSeed(base prt.PublicKey, seed string, owner prt.PublicKey) (prt.PublicKey, error) {
	var address prt.PublicKey

	if len(seed) > prt.MaxSeedLength {
		return address, fmt.Errorf("%w: %d bytes (max %d)", ErrMaxSeedLengthExceeded, len(seed), prt.MaxSeedLength)
	}

	// Owners ending with the PDA marker would let seeds collide with program derived addresses
	if bytes.HasSuffix(owner[:], []byte(prt.PDAMarker)) {
		return address, ErrIllegalOwner
	}

	hash := sha256.New()
	hash.Write(base[:])
	hash.Write([]byte(seed))
	hash.Write(owner[:])
	copy(address[:], hash.Sum(nil))

	return address, nil
}

// ShortAddress renders the first and last characters of a base58 address for logs
func ShortAddress(address prt.PublicKey) string {
	s := utils.PublicKeyToString(address)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
