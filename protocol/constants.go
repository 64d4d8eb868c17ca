package protocol

import "github.com/mr-tron/base58"

// Well-known program ids.
var (
	SystemProgramID = PublicKey{} // 11111111111111111111111111111111
	LoaderProgramID = mustPublicKey("BPFLoader2111111111111111111111111111111111")
)

const (
	LamportsPerSol = 1_000_000_000

	// Rent parameters of the hosting ledger
	AccountStorageOverhead      = 128
	LamportsPerByteYear         = 3480
	ExemptionThresholdYears     = 2
	DefaultLamportsPerSignature = 5000

	// Address derivation
	MaxSeedLength = 32
	PDAMarker     = "ProgramDerivedAddress"

	// Number of slots a blockhash stays valid for
	MaxRecentBlockhashes = 150

	// Largest serialized transaction accepted by the ledger
	PacketDataSize = 1232
)

func mustPublicKey(s string) PublicKey {
	b, err := base58.Decode(s)
	if err != nil || len(b) != PublicKeyLength {
		panic("invalid builtin public key: " + s)
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk
}
