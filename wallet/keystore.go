package wallet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"
)

var ErrDecrypt = errors.New("could not decrypt key with given passphrase")

// EncryptKeypair seals the secret key with a scrypt derived AES-128-CTR key
func EncryptKeypair(k *Keypair, passphrase string, scryptN int) (*Keystore, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to read iv: %w", err)
	}

	derivedKey, err := scrypt.Key([]byte(passphrase), salt, scryptN, ScryptR, ScryptP, ScryptDKLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	cipherText, err := aesCTR(derivedKey[:16], iv, k.Secret())
	if err != nil {
		return nil, err
	}

	return &Keystore{
		Version:   KeystoreVersion,
		PublicKey: k.Address(),
		Crypto: Crypto{
			Cipher:       "aes-128-ctr",
			CipherText:   hex.EncodeToString(cipherText),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			KDF:          "scrypt",
			KDFParams: KDFParams{
				DkLen: ScryptDKLen,
				N:     scryptN,
				P:     ScryptP,
				R:     ScryptR,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(keystoreMAC(derivedKey, cipherText)),
		},
	}, nil
}

// DecryptKeystore opens a keystore, failing with ErrDecrypt on a wrong passphrase
func DecryptKeystore(ks *Keystore, passphrase string) (*Keypair, error) {
	if ks.Crypto.Cipher != "aes-128-ctr" || ks.Crypto.KDF != "scrypt" {
		return nil, fmt.Errorf("unsupported keystore: cipher %s, kdf %s", ks.Crypto.Cipher, ks.Crypto.KDF)
	}

	salt, err := hex.DecodeString(ks.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("invalid iv: %w", err)
	}
	cipherText, err := hex.DecodeString(ks.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}
	mac, err := hex.DecodeString(ks.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid mac: %w", err)
	}

	p := ks.Crypto.KDFParams
	derivedKey, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, p.DkLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	if len(derivedKey) < 32 {
		return nil, fmt.Errorf("derived key too short: %d", len(derivedKey))
	}

	if !bytes.Equal(keystoreMAC(derivedKey, cipherText), mac) {
		return nil, ErrDecrypt
	}

	secret, err := aesCTR(derivedKey[:16], iv, cipherText)
	if err != nil {
		return nil, err
	}
	return KeypairFromSecret(secret)
}

func keystoreMAC(derivedKey, cipherText []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(derivedKey[16:32])
	hash.Write(cipherText)
	return hash.Sum(nil)
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

func LoadKeystoreFile(path string) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}

	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("failed to parse keystore file %s: %w", path, err)
	}
	return &ks, nil
}

func SaveKeystoreFile(path string, ks *Keystore) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write keystore file: %w", err)
	}
	return nil
}
