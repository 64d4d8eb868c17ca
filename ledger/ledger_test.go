package ledger

import (
	"crypto/ed25519"
	"testing"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSigner struct {
	priv ed25519.PrivateKey
	pub  prt.PublicKey
}

func newTestSigner(t *testing.T) *testSigner {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return &testSigner{priv: priv, pub: pub}
}

func (s *testSigner) PublicKey() prt.PublicKey { return s.pub }

func (s *testSigner) Sign(message []byte) (prt.Signature, error) {
	return crypto.SignData(s.priv, message)
}

func TestCompactU16(t *testing.T) {
	cases := map[int][]byte{
		0:      {0x00},
		0x7f:   {0x7f},
		0x80:   {0x80, 0x01},
		0x3fff: {0xff, 0x7f},
		0x4000: {0x80, 0x80, 0x01},
		0xffff: {0xff, 0xff, 0x03},
	}

	for n, want := range cases {
		got := appendCompactU16(nil, n)
		assert.Equal(t, want, got, "encode %d", n)

		d := &decoder{buf: got}
		assert.Equal(t, n, d.readCompactU16(), "decode %d", n)
		assert.NoError(t, d.err)
	}

	// Non-canonical and oversized encodings are rejected
	for _, bad := range [][]byte{{0x80, 0x00}, {0xff, 0xff, 0x04}, {0x80, 0x80, 0x80}, {0x80}} {
		d := &decoder{buf: bad}
		d.readCompactU16()
		assert.Error(t, d.err, "%x", bad)
	}
}

func TestNewMessageOrdersAccounts(t *testing.T) {
	payer := newTestSigner(t)
	var program, writable, readonly prt.PublicKey
	program[0], writable[0], readonly[0] = 1, 2, 3

	ix := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			{PublicKey: readonly},
			{PublicKey: writable, IsWritable: true},
			{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true},
		},
		Data: []byte{9},
	}

	msg, err := NewMessage(payer.PublicKey(), prt.Hash{7}, ix)
	require.NoError(t, err)

	assert.Equal(t, []prt.PublicKey{payer.PublicKey(), writable, readonly, program}, msg.AccountKeys)
	assert.Equal(t, MessageHeader{
		NumRequiredSignatures:       1,
		NumReadonlySignedAccounts:   0,
		NumReadonlyUnsignedAccounts: 2,
	}, msg.Header)

	require.Len(t, msg.Instructions, 1)
	assert.Equal(t, uint8(3), msg.Instructions[0].ProgramIDIndex)
	assert.Equal(t, []uint8{2, 1, 0}, msg.Instructions[0].Accounts)

	assert.True(t, msg.IsSigner(0))
	assert.True(t, msg.IsWritable(0))
	assert.True(t, msg.IsWritable(1))
	assert.False(t, msg.IsWritable(2))
	assert.False(t, msg.IsSigner(1))
	assert.NoError(t, msg.Validate())
}

func TestTransactionRoundTrip(t *testing.T) {
	payer := newTestSigner(t)
	var owner prt.PublicKey
	owner[0] = 42

	newAccount, err := crypto.CreateWithSeed(payer.PublicKey(), "IamTheCalculator", owner)
	require.NoError(t, err)

	tx, err := NewTransaction(payer.PublicKey(), prt.Hash{1, 2, 3},
		CreateAccountWithSeed(payer.PublicKey(), newAccount, payer.PublicKey(), "IamTheCalculator", 918720, 4, owner))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))
	require.NoError(t, tx.VerifySignatures())

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	decoded, err := UnmarshalTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.Equal(t, tx.Message.AccountKeys, decoded.Message.AccountKeys)
	assert.Equal(t, tx.Message.Header, decoded.Message.Header)
	assert.Equal(t, tx.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
	require.NoError(t, decoded.VerifySignatures())

	again, err := decoded.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, again)

	// Trailing garbage is rejected
	_, err = UnmarshalTransaction(append(raw, 0))
	assert.Error(t, err)
	_, err = UnmarshalTransaction(raw[:len(raw)-1])
	assert.Error(t, err)
}

func TestSignRejectsUnknownSigner(t *testing.T) {
	payer := newTestSigner(t)
	other := newTestSigner(t)

	tx, err := NewTransaction(payer.PublicKey(), prt.Hash{}, Transfer(payer.PublicKey(), other.PublicKey(), 1))
	require.NoError(t, err)

	err = tx.Sign(other)
	assert.ErrorIs(t, err, ErrUnknownSigner)

	// Unsigned transaction fails verification
	assert.ErrorIs(t, tx.VerifySignatures(), ErrMissingSignature)
}

func TestVerifyDetectsTampering(t *testing.T) {
	payer := newTestSigner(t)
	var to prt.PublicKey
	to[5] = 1

	tx, err := NewTransaction(payer.PublicKey(), prt.Hash{9}, Transfer(payer.PublicKey(), to, 100))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))

	tx.Message.Instructions[0].Data[4] = 0xff
	assert.ErrorIs(t, tx.VerifySignatures(), ErrInvalidSignature)
}

func TestSystemInstructionEncoding(t *testing.T) {
	var from, to, owner prt.PublicKey
	from[0], to[0], owner[0] = 1, 2, 3

	ix := CreateAccountWithSeed(from, to, from, "IamTheCalculator", 918720, 4, owner)
	assert.Len(t, ix.Accounts, 2, "base equal to funder is not listed twice")
	assert.Len(t, ix.Data, 4+32+8+16+8+8+32)

	decoded, err := DecodeSystemInstruction(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, &SystemInstruction{
		Kind:     SystemCreateAccountWithSeed,
		Lamports: 918720,
		Space:    4,
		Owner:    owner,
		Base:     from,
		Seed:     "IamTheCalculator",
	}, decoded)

	transfer, err := DecodeSystemInstruction(Transfer(from, to, 55).Data)
	require.NoError(t, err)
	assert.Equal(t, SystemTransfer, transfer.Kind)
	assert.Equal(t, uint64(55), transfer.Lamports)

	_, err = DecodeSystemInstruction([]byte{3, 0, 0})
	assert.Error(t, err)
	_, err = DecodeSystemInstruction([]byte{9, 0, 0, 0})
	assert.Error(t, err)
}
