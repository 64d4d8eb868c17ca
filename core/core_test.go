package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/abcfe/abcfe-calculator/storage"
)

const testProgram = "CaLcuLatoR1111111111111111111111111111111111"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Common.NetworkID = "test"
	cfg.Genesis.FaucetLamports = 1_000 * prt.LamportsPerSol
	cfg.Genesis.Programs = []string{testProgram}
	return cfg
}

func newTestLedger(t *testing.T, cfg *config.Config) (*Ledger, *leveldb.DB) {
	t.Helper()

	db, err := storage.OpenMemDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := NewLedger(db, cfg)
	require.NoError(t, err)
	return l, db
}

func newSigner(t *testing.T) faucetSigner {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return faucetSigner{priv: priv}
}

func fund(t *testing.T, l *Ledger, to prt.PublicKey, lamports uint64) {
	t.Helper()
	_, err := l.RequestAirdrop(to, lamports)
	require.NoError(t, err)
}

func signedTx(t *testing.T, l *Ledger, signers []faucetSigner, ixs ...ledger.Instruction) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransaction(signers[0].PublicKey(), l.GetLatestBlockhash(), ixs...)
	require.NoError(t, err)
	for _, s := range signers {
		require.NoError(t, tx.Sign(s))
	}
	return tx
}

func TestGenesis(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())

	status := l.GetStatus()
	assert.Equal(t, uint64(0), status.Slot)
	assert.NotEmpty(t, status.Faucet)

	faucet, ok := l.FaucetAddress()
	require.True(t, ok)
	balance, err := l.GetBalance(faucet)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000*prt.LamportsPerSol), balance)

	program, err := utils.StringToPublicKey(testProgram)
	require.NoError(t, err)
	info, err := l.GetAccount(program)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Executable)
	assert.Equal(t, prt.LoaderProgramID, info.Owner)
}

func TestReloadKeepsHead(t *testing.T) {
	l, db := newTestLedger(t, testConfig())
	user := newSigner(t)
	fund(t, l, user.PublicKey(), prt.LamportsPerSol)

	reloaded, err := NewLedger(db, testConfig())
	require.NoError(t, err)
	assert.Equal(t, l.GetStatus(), reloaded.GetStatus())

	balance, err := reloaded.GetBalance(user.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(prt.LamportsPerSol), balance)
}

func TestTransferChargesFee(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	alice, bob := newSigner(t), newSigner(t)
	fund(t, l, alice.PublicKey(), prt.LamportsPerSol)

	tx := signedTx(t, l, []faucetSigner{alice}, ledger.Transfer(alice.PublicKey(), bob.PublicKey(), 1000))
	sig, err := l.ProcessTransaction(tx)
	require.NoError(t, err)

	status, err := l.GetSignatureStatus(sig)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.False(t, status.Failed())
	assert.Equal(t, uint64(5000), status.Fee)

	aliceBalance, _ := l.GetBalance(alice.PublicKey())
	bobBalance, _ := l.GetBalance(bob.PublicKey())
	assert.Equal(t, uint64(prt.LamportsPerSol-1000-5000), aliceBalance)
	assert.Equal(t, uint64(1000), bobBalance)
}

func TestRejectsInvalidSignature(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	alice, bob := newSigner(t), newSigner(t)
	fund(t, l, alice.PublicKey(), prt.LamportsPerSol)
	slot := l.GetLatestSlot()

	tx := signedTx(t, l, []faucetSigner{alice}, ledger.Transfer(alice.PublicKey(), bob.PublicKey(), 1000))
	tx.Signatures[0][0] ^= 0xff

	_, err := l.ProcessTransaction(tx)
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)
	assert.Equal(t, slot, l.GetLatestSlot())
}

func TestRejectsUnknownBlockhash(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	alice, bob := newSigner(t), newSigner(t)
	fund(t, l, alice.PublicKey(), prt.LamportsPerSol)

	tx, err := ledger.NewTransaction(alice.PublicKey(), utils.HashBytes([]byte("stale")),
		ledger.Transfer(alice.PublicKey(), bob.PublicKey(), 1000))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(alice))

	_, err = l.ProcessTransaction(tx)
	assert.ErrorIs(t, err, ErrBlockhashNotFound)
}

func TestRejectsDuplicateSignature(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	alice, bob := newSigner(t), newSigner(t)
	fund(t, l, alice.PublicKey(), prt.LamportsPerSol)

	tx := signedTx(t, l, []faucetSigner{alice}, ledger.Transfer(alice.PublicKey(), bob.PublicKey(), 1000))
	_, err := l.ProcessTransaction(tx)
	require.NoError(t, err)

	_, err = l.ProcessTransaction(tx)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	bobBalance, _ := l.GetBalance(bob.PublicKey())
	assert.Equal(t, uint64(1000), bobBalance)
}

func TestRejectsPayerWithoutFee(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	alice, bob := newSigner(t), newSigner(t)

	tx := signedTx(t, l, []faucetSigner{alice}, ledger.Transfer(alice.PublicKey(), bob.PublicKey(), 1))
	_, err := l.ProcessTransaction(tx)
	assert.ErrorIs(t, err, ErrInsufficientFundsForFee)
}

func TestFailedExecutionKeepsFee(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	alice, bob := newSigner(t), newSigner(t)
	fund(t, l, alice.PublicKey(), 100_000)

	tx := signedTx(t, l, []faucetSigner{alice}, ledger.Transfer(alice.PublicKey(), bob.PublicKey(), 1_000_000))
	sig, err := l.ProcessTransaction(tx)
	require.NoError(t, err)

	status, err := l.GetSignatureStatus(sig)
	require.NoError(t, err)
	require.True(t, status.Failed())
	assert.Equal(t, 0, status.InstructionIndex)

	var txErr *ledger.TransactionError
	require.True(t, errors.As(status.TransactionError(sig), &txErr))
	assert.Contains(t, txErr.Reason, "insufficient funds")

	aliceBalance, _ := l.GetBalance(alice.PublicKey())
	assert.Equal(t, uint64(100_000-5000), aliceBalance)
}

func TestCreateAccountWithSeedAndCalculate(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	payer := newSigner(t)
	fund(t, l, payer.PublicKey(), prt.LamportsPerSol)

	program, err := utils.StringToPublicKey(testProgram)
	require.NoError(t, err)
	handle, err := calculator.NewAccountHandle(payer.PublicKey(), calculator.DefaultSeed, program)
	require.NoError(t, err)

	rent := MinimumBalanceForRentExemption(handle.Size)
	create := ledger.CreateAccountWithSeed(payer.PublicKey(), handle.Address, handle.Base, handle.Seed, rent, handle.Size, program)
	sig, err := l.ProcessTransaction(signedTx(t, l, []faucetSigner{payer}, create))
	require.NoError(t, err)
	status, _ := l.GetSignatureStatus(sig)
	require.False(t, status.Failed(), status.Err)

	// A second create fails during execution
	sig, err = l.ProcessTransaction(signedTx(t, l, []faucetSigner{payer}, create))
	require.NoError(t, err)
	status, _ = l.GetSignatureStatus(sig)
	assert.Contains(t, status.Err, "already in use")

	add := calculator.NewOperationInstruction(handle, calculator.OperationRequest{Opcode: calculator.OpAdd, Operand1: 7, Operand2: 5})
	sig, err = l.ProcessTransaction(signedTx(t, l, []faucetSigner{payer}, add))
	require.NoError(t, err)
	status, _ = l.GetSignatureStatus(sig)
	require.False(t, status.Failed(), status.Err)

	info, err := l.GetAccount(handle.Address)
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 0, 0, 0}, info.Data)
	assert.Equal(t, rent, info.Lamports)
	assert.Equal(t, program, info.Owner)
}

func TestCreateAccountWithSeedRejectsWrongAddress(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	payer, other := newSigner(t), newSigner(t)
	fund(t, l, payer.PublicKey(), prt.LamportsPerSol)

	program, _ := utils.StringToPublicKey(testProgram)
	create := ledger.CreateAccountWithSeed(payer.PublicKey(), other.PublicKey(), payer.PublicKey(), "seed", 1_000_000, 4, program)
	sig, err := l.ProcessTransaction(signedTx(t, l, []faucetSigner{payer}, create))
	require.NoError(t, err)

	status, _ := l.GetSignatureStatus(sig)
	assert.Contains(t, status.Err, ErrAddressMismatch.Error())
}

func TestCalculatorRejectsForeignAccount(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	payer := newSigner(t)
	fund(t, l, payer.PublicKey(), prt.LamportsPerSol)

	program, _ := utils.StringToPublicKey(testProgram)
	handle := calculator.AccountHandle{Address: payer.PublicKey(), Owner: program, Size: calculator.AccountSize}
	add := calculator.NewOperationInstruction(handle, calculator.OperationRequest{Opcode: calculator.OpAdd, Operand1: 1})
	sig, err := l.ProcessTransaction(signedTx(t, l, []faucetSigner{payer}, add))
	require.NoError(t, err)

	status, _ := l.GetSignatureStatus(sig)
	assert.Contains(t, status.Err, calculator.ErrIncorrectProgramID.Error())
}

func TestFaucetDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Genesis.FaucetLamports = 0
	l, _ := newTestLedger(t, cfg)

	_, ok := l.FaucetAddress()
	assert.False(t, ok)

	_, err := l.RequestAirdrop(newSigner(t).PublicKey(), 1)
	assert.ErrorIs(t, err, ErrFaucetDisabled)
}

func TestAirdropLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxAirdropLamports = 10
	l, _ := newTestLedger(t, cfg)

	_, err := l.RequestAirdrop(newSigner(t).PublicKey(), 11)
	assert.ErrorIs(t, err, ErrAirdropTooLarge)
}

func TestSubscribeReceivesStatus(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())

	var got []prt.Signature
	l.Subscribe(func(sig prt.Signature, status TxStatus) {
		got = append(got, sig)
	})

	sig, err := l.RequestAirdrop(newSigner(t).PublicKey(), 10)
	require.NoError(t, err)
	assert.Equal(t, []prt.Signature{sig}, got)
}

func TestLocalClientConfirm(t *testing.T) {
	l, _ := newTestLedger(t, testConfig())
	client := NewLocalClient(l)
	ctx := context.Background()
	alice := newSigner(t)

	sig, err := client.RequestAirdrop(ctx, alice.PublicKey(), 100_000)
	require.NoError(t, err)
	require.NoError(t, client.ConfirmTransaction(ctx, sig))

	_, err = ledger.SendAndConfirm(ctx, client, []ledger.Signer{alice}, ledger.Transfer(alice.PublicKey(), newSigner(t).PublicKey(), 1_000_000))
	var txErr *ledger.TransactionError
	assert.True(t, errors.As(err, &txErr))

	err = client.ConfirmTransaction(ctx, prt.Signature{1})
	assert.Error(t, err)
}

func TestMinimumBalanceForRentExemption(t *testing.T) {
	assert.Equal(t, uint64((128+4)*3480*2), MinimumBalanceForRentExemption(4))
	assert.Equal(t, uint64(890880), MinimumBalanceForRentExemption(0))
}
