package wallet

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/config"
)

// Test vector mnemonic from the bip39 reference set
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestCreateWallet(t *testing.T) {
	wm := NewWalletManager(t.TempDir())
	wallet, err := wm.CreateWallet()
	if err != nil {
		t.Fatalf("Error: %v", err)
	}

	assert.Len(t, wallet.Seed, 64)
	assert.Len(t, strings.Fields(wallet.Mnemonic), 12)
	assert.NotEmpty(t, wallet.Keypair.Address())
}

func TestRestoreWallet(t *testing.T) {
	wm := NewWalletManager(t.TempDir())
	wallet, err := wm.CreateWallet()
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	newAddress := wallet.Keypair.Address()

	restored, err := wm.RestoreWallet("  " + wallet.Mnemonic + "\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if restored.Keypair.Address() != newAddress {
		t.Fatalf("address is different each other. %s | %s", newAddress, restored.Keypair.Address())
	}
}

func TestRestoreDeterministic(t *testing.T) {
	a, err := RestoreMnemonicWallet(testMnemonic, "")
	require.NoError(t, err)
	b, err := RestoreMnemonicWallet(testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, a.Keypair.PublicKey(), b.Keypair.PublicKey())

	_, err = RestoreMnemonicWallet("abandon abandon abandon", "")
	assert.Error(t, err)
}

func TestKeypairFileRoundTrip(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, SaveKeypairFile(path, kp))

	loaded, err := LoadKeypairFile(path)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), loaded.PublicKey())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadKeypairFileRejectsMismatch(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)
	secret := kp.Secret()
	secret[40] ^= 0xff

	_, err = KeypairFromSecret(secret)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2,3]"), 0600))
	_, err = LoadKeypairFile(path)
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	testData := []byte("test transaction data for signing")
	sig, err := kp.Sign(testData)
	require.NoError(t, err)

	assert.True(t, crypto.VerifySignature(kp.PublicKey(), testData, sig))
	assert.False(t, crypto.VerifySignature(kp.PublicKey(), []byte("wrong data"), sig))
}

func TestKeystoreRoundTrip(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	ks, err := EncryptKeypair(kp, "correct horse", LightScryptN)
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), ks.PublicKey)

	path := filepath.Join(t.TempDir(), "keystore.json")
	require.NoError(t, SaveKeystoreFile(path, ks))
	loaded, err := LoadKeystoreFile(path)
	require.NoError(t, err)

	opened, err := DecryptKeystore(loaded, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), opened.PublicKey())

	_, err = DecryptKeystore(loaded, "wrong")
	assert.True(t, errors.Is(err, ErrDecrypt))
}

func TestLoadSigner(t *testing.T) {
	dir := t.TempDir()
	wm := NewWalletManager(dir)
	_, err := wm.RestoreWallet(testMnemonic)
	require.NoError(t, err)
	_, err = wm.SaveKeypair("id.json")
	require.NoError(t, err)

	_, err = wm.SaveKeypair("id.json")
	assert.Error(t, err, "existing keypair must not be overwritten")

	cfg := config.Default()
	cfg.Wallet.Path = dir
	signer, err := LoadSigner(cfg)
	require.NoError(t, err)
	assert.Equal(t, wm.Wallet.Keypair.PublicKey(), signer.PublicKey())

	_, err = wm.EncryptKeypair("id.json", "keystore.json", "secret", LightScryptN)
	require.NoError(t, err)
	cfg.Wallet.KeystoreFile = "keystore.json"

	t.Setenv(PassphraseEnv, "secret")
	signer, err = LoadSigner(cfg)
	require.NoError(t, err)
	assert.Equal(t, wm.Wallet.Keypair.PublicKey(), signer.PublicKey())
}

func TestLoadProgramID(t *testing.T) {
	cfg := config.Default()
	cfg.Program.ID = "CaLcuLatoR1111111111111111111111111111111111"
	id, err := LoadProgramID(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, [32]byte(id))

	kp, err := NewKeypair()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "program.json")
	require.NoError(t, SaveKeypairFile(path, kp))

	cfg.Program.ID = ""
	cfg.Program.KeypairFile = path
	id, err = LoadProgramID(cfg)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), id)

	cfg.Program.KeypairFile = ""
	_, err = LoadProgramID(cfg)
	assert.Error(t, err)
}
