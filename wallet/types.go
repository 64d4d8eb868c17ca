package wallet

// Keystore-related types
type CipherParams struct {
	IV string `json:"iv"` // Initialization vector
}

type KDFParams struct {
	DkLen int    `json:"dklen"` // Derived key length
	N     int    `json:"n"`     // CPU/Memory cost
	P     int    `json:"p"`     // Parallelization parameter
	R     int    `json:"r"`     // Block size
	Salt  string `json:"salt"`  // Salt
}

type Crypto struct {
	Cipher       string       `json:"cipher"`     // "aes-128-ctr"
	CipherText   string       `json:"ciphertext"` // Encrypted 64 byte secret key
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "scrypt"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // keccak256(derivedKey[16:32] || ciphertext)
}

// Keystore is an encrypted keypair file
type Keystore struct {
	Version   int    `json:"version"`
	PublicKey string `json:"pubkey"` // base58
	Crypto    Crypto `json:"crypto"`
}

// Mnemonic-based wallet
type MnemonicWallet struct {
	Mnemonic string   `json:"mnemonic"` // 12 words
	Seed     []byte   `json:"seed"`     // bip39 seed derived from mnemonic
	Keypair  *Keypair `json:"-"`        // ed25519 key from the first 32 seed bytes
}

const (
	KeystoreVersion = 1

	// scrypt cost parameters
	StandardScryptN = 1 << 18
	LightScryptN    = 1 << 12
	ScryptR         = 8
	ScryptP         = 1
	ScryptDKLen     = 32

	// Environment variable holding the keystore passphrase
	PassphraseEnv = "CALCULATOR_KEYSTORE_PASSPHRASE"
)
