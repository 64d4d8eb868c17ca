package ledger

import (
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/utils"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

var (
	ErrTooManyAccounts   = errors.New("too many account keys")
	ErrUnknownSigner     = errors.New("signer is not required by the message")
	ErrMissingSignature  = errors.New("missing signature")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrTransactionTooBig = errors.New("transaction too large")
)

type AccountMeta struct {
	PublicKey  prt.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction invokes one program with an ordered account list
type Instruction struct {
	ProgramID prt.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into Message.AccountKeys
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

type Message struct {
	Header          MessageHeader
	AccountKeys     []prt.PublicKey
	RecentBlockhash prt.Hash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []prt.Signature
	Message    Message
}

type keyMeta struct {
	signer   bool
	writable bool
}

// NewMessage compiles instructions into a message.
// Keys are ordered writable signers (fee payer first), readonly signers, writable and readonly non-signers.
func NewMessage(feePayer prt.PublicKey, blockhash prt.Hash, instructions ...Instruction) (*Message, error) {
	order := []prt.PublicKey{feePayer}
	metas := map[prt.PublicKey]*keyMeta{feePayer: {signer: true, writable: true}}

	add := func(pk prt.PublicKey, signer, writable bool) {
		if m, ok := metas[pk]; ok {
			m.signer = m.signer || signer
			m.writable = m.writable || writable
			return
		}
		metas[pk] = &keyMeta{signer: signer, writable: writable}
		order = append(order, pk)
	}

	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc.PublicKey, acc.IsSigner, acc.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	var writableSigners, readonlySigners, writableOthers, readonlyOthers []prt.PublicKey
	for _, pk := range order {
		m := metas[pk]
		switch {
		case m.signer && m.writable:
			writableSigners = append(writableSigners, pk)
		case m.signer:
			readonlySigners = append(readonlySigners, pk)
		case m.writable:
			writableOthers = append(writableOthers, pk)
		default:
			readonlyOthers = append(readonlyOthers, pk)
		}
	}

	keys := make([]prt.PublicKey, 0, len(order))
	keys = append(keys, writableSigners...)
	keys = append(keys, readonlySigners...)
	keys = append(keys, writableOthers...)
	keys = append(keys, readonlyOthers...)

	if len(keys) > 256 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAccounts, len(keys))
	}

	index := make(map[prt.PublicKey]uint8, len(keys))
	for i, pk := range keys {
		index[pk] = uint8(i)
	}

	compiled := make([]CompiledInstruction, len(instructions))
	for i, ix := range instructions {
		accounts := make([]uint8, len(ix.Accounts))
		for j, acc := range ix.Accounts {
			accounts[j] = index[acc.PublicKey]
		}
		compiled[i] = CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Accounts:       accounts,
			Data:           ix.Data,
		}
	}

	return &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       uint8(len(writableSigners) + len(readonlySigners)),
			NumReadonlySignedAccounts:   uint8(len(readonlySigners)),
			NumReadonlyUnsignedAccounts: uint8(len(readonlyOthers)),
		},
		AccountKeys:     keys,
		RecentBlockhash: blockhash,
		Instructions:    compiled,
	}, nil
}

// IsSigner reports whether the key at index must sign
func (m *Message) IsSigner(i int) bool {
	return i < int(m.Header.NumRequiredSignatures)
}

// IsWritable reports whether the key at index may be modified
func (m *Message) IsWritable(i int) bool {
	numSigned := int(m.Header.NumRequiredSignatures)
	if i < numSigned {
		return i < numSigned-int(m.Header.NumReadonlySignedAccounts)
	}
	return i < len(m.AccountKeys)-int(m.Header.NumReadonlyUnsignedAccounts)
}

// FeePayer returns the first key, which pays the transaction fee
func (m *Message) FeePayer() prt.PublicKey {
	if len(m.AccountKeys) == 0 {
		return prt.PublicKey{}
	}
	return m.AccountKeys[0]
}

// Validate checks header and index consistency of a decoded message
func (m *Message) Validate() error {
	numKeys := len(m.AccountKeys)
	if int(m.Header.NumRequiredSignatures) > numKeys ||
		int(m.Header.NumReadonlySignedAccounts) >= int(m.Header.NumRequiredSignatures) ||
		int(m.Header.NumRequiredSignatures)+int(m.Header.NumReadonlyUnsignedAccounts) > numKeys {
		return fmt.Errorf("invalid message header")
	}

	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= numKeys || ix.ProgramIDIndex == 0 {
			return fmt.Errorf("instruction %d: invalid program index %d", i, ix.ProgramIDIndex)
		}
		for _, idx := range ix.Accounts {
			if int(idx) >= numKeys {
				return fmt.Errorf("instruction %d: account index %d out of range", i, idx)
			}
		}
	}
	return nil
}

func NewTransaction(feePayer prt.PublicKey, blockhash prt.Hash, instructions ...Instruction) (*Transaction, error) {
	msg, err := NewMessage(feePayer, blockhash, instructions...)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Signatures: make([]prt.Signature, msg.Header.NumRequiredSignatures),
		Message:    *msg,
	}, nil
}

// Sign fills the signature slot of every given signer
func (tx *Transaction) Sign(signers ...Signer) error {
	data, err := tx.Message.MarshalBinary()
	if err != nil {
		return err
	}

	numSigned := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != numSigned {
		tx.Signatures = make([]prt.Signature, numSigned)
	}

	for _, signer := range signers {
		pk := signer.PublicKey()
		idx := -1
		for i := 0; i < numSigned; i++ {
			if tx.Message.AccountKeys[i] == pk {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownSigner, utils.PublicKeyToString(pk))
		}

		sig, err := signer.Sign(data)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}
		tx.Signatures[idx] = sig
	}

	return nil
}

// Signature returns the fee payer signature, which identifies the transaction
func (tx *Transaction) Signature() prt.Signature {
	if len(tx.Signatures) == 0 {
		return prt.Signature{}
	}
	return tx.Signatures[0]
}

// VerifySignatures checks every required signature against the message
func (tx *Transaction) VerifySignatures() error {
	numSigned := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != numSigned {
		return fmt.Errorf("%w: have %d, need %d", ErrMissingSignature, len(tx.Signatures), numSigned)
	}

	data, err := tx.Message.MarshalBinary()
	if err != nil {
		return err
	}

	for i := 0; i < numSigned; i++ {
		if tx.Signatures[i] == (prt.Signature{}) {
			return fmt.Errorf("%w: %s", ErrMissingSignature, utils.PublicKeyToString(tx.Message.AccountKeys[i]))
		}
		if !crypto.VerifySignature(tx.Message.AccountKeys[i], data, tx.Signatures[i]) {
			return fmt.Errorf("%w: %s", ErrInvalidSignature, utils.PublicKeyToString(tx.Message.AccountKeys[i]))
		}
	}
	return nil
}
