package protocol

type PublicKey [32]byte
type Hash [32]byte
type Signature [64]byte

const (
	PublicKeyLength = 32
	HashLength      = 32
	SignatureLength = 64
)
