package calculator

import (
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/utils"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// DefaultSeed is shared by every client and the program; it alone makes the address reproducible.
const DefaultSeed = "IamTheCalculator"

// AccountSize is the encoded length of a zero state record. Provisioning funds and allocates exactly this.
var AccountSize = uint64(len(EncodeState(StateRecord{})))

// AccountHandle identifies the calculator account and how it was derived
type AccountHandle struct {
	Address prt.PublicKey
	Owner   prt.PublicKey // calculator program
	Base    prt.PublicKey // identity the address is derived from
	Seed    string
	Size    uint64
}

func (h AccountHandle) String() string {
	return utils.PublicKeyToString(h.Address)
}

// DeriveAddress computes the deterministic account address for (base, seed, owner)
func DeriveAddress(base prt.PublicKey, seed string, owner prt.PublicKey) (prt.PublicKey, error) {
	address, err := crypto.CreateWithSeed(base, seed, owner)
	if err != nil {
		return prt.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return address, nil
}

// NewAccountHandle derives the handle of the account owned by program for base
func NewAccountHandle(base prt.PublicKey, seed string, program prt.PublicKey) (AccountHandle, error) {
	address, err := DeriveAddress(base, seed, program)
	if err != nil {
		return AccountHandle{}, err
	}

	return AccountHandle{
		Address: address,
		Owner:   program,
		Base:    base,
		Seed:    seed,
		Size:    AccountSize,
	}, nil
}

// ParsePublicKey parses a base58 identity
func ParsePublicKey(s string) (prt.PublicKey, error) {
	pk, err := utils.StringToPublicKey(s)
	if err != nil {
		return prt.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return pk, nil
}

// ParseOperand parses a decimal unsigned 32-bit operand
func ParseOperand(s string) (uint32, error) {
	v, err := utils.StringToUint32(s)
	if err != nil {
		return 0, fmt.Errorf("%w: operand %q: %w", ErrInvalidInput, s, err)
	}
	return v, nil
}
