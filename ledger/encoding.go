package ledger

import (
	"errors"
	"fmt"

	prt "github.com/abcfe/abcfe-calculator/protocol"
)

var ErrShortBuffer = errors.New("unexpected end of buffer")

// appendCompactU16 writes n as a 1-3 byte little-endian base-128 varint
func appendCompactU16(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if d.off >= len(d.buf) {
		d.fail(ErrShortBuffer)
		return 0
	}
	b := d.buf[d.off]
	d.off++
	return b
}

func (d *decoder) readBytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.fail(ErrShortBuffer)
		return nil
	}
	if n == 0 {
		return nil
	}
	b := make([]byte, n)
	copy(b, d.buf[d.off:d.off+n])
	d.off += n
	return b
}

func (d *decoder) readCompactU16() int {
	value := 0
	for size := 0; size < 3; size++ {
		elem := d.readByte()
		if d.err != nil {
			return 0
		}
		value |= int(elem&0x7f) << (size * 7)
		if elem&0x80 == 0 {
			// Reject aliases such as 0x80 0x00
			if size > 0 && elem == 0 {
				d.fail(fmt.Errorf("non-canonical compact-u16"))
				return 0
			}
			if value > 0xffff {
				d.fail(fmt.Errorf("compact-u16 overflow"))
				return 0
			}
			return value
		}
	}
	d.fail(fmt.Errorf("compact-u16 too long"))
	return 0
}

func (m *Message) MarshalBinary() ([]byte, error) {
	if len(m.AccountKeys) > 256 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAccounts, len(m.AccountKeys))
	}

	buf := make([]byte, 0, 3+1+len(m.AccountKeys)*prt.PublicKeyLength+prt.HashLength+64)
	buf = append(buf,
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	)

	buf = appendCompactU16(buf, len(m.AccountKeys))
	for _, pk := range m.AccountKeys {
		buf = append(buf, pk[:]...)
	}

	buf = append(buf, m.RecentBlockhash[:]...)

	buf = appendCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = appendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}

	return buf, nil
}

func (tx *Transaction) MarshalBinary() ([]byte, error) {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 1+len(tx.Signatures)*prt.SignatureLength+len(msg))
	buf = appendCompactU16(buf, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		buf = append(buf, sig[:]...)
	}
	buf = append(buf, msg...)

	if len(buf) > prt.PacketDataSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTransactionTooBig, len(buf), prt.PacketDataSize)
	}
	return buf, nil
}

func decodeMessage(d *decoder) *Message {
	m := &Message{}
	m.Header.NumRequiredSignatures = d.readByte()
	m.Header.NumReadonlySignedAccounts = d.readByte()
	m.Header.NumReadonlyUnsignedAccounts = d.readByte()

	numKeys := d.readCompactU16()
	m.AccountKeys = make([]prt.PublicKey, 0, numKeys)
	for i := 0; i < numKeys && d.err == nil; i++ {
		var pk prt.PublicKey
		copy(pk[:], d.readBytes(prt.PublicKeyLength))
		m.AccountKeys = append(m.AccountKeys, pk)
	}

	copy(m.RecentBlockhash[:], d.readBytes(prt.HashLength))

	numIxs := d.readCompactU16()
	m.Instructions = make([]CompiledInstruction, 0, numIxs)
	for i := 0; i < numIxs && d.err == nil; i++ {
		var ix CompiledInstruction
		ix.ProgramIDIndex = d.readByte()
		ix.Accounts = d.readBytes(d.readCompactU16())
		ix.Data = d.readBytes(d.readCompactU16())
		m.Instructions = append(m.Instructions, ix)
	}

	return m
}

// UnmarshalMessage decodes a message produced by Message.MarshalBinary
func UnmarshalMessage(data []byte) (*Message, error) {
	d := &decoder{buf: data}
	m := decodeMessage(d)
	if d.err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", d.err)
	}
	if d.off != len(data) {
		return nil, fmt.Errorf("failed to decode message: %d trailing bytes", len(data)-d.off)
	}
	return m, nil
}

// UnmarshalTransaction decodes a wire transaction
func UnmarshalTransaction(data []byte) (*Transaction, error) {
	if len(data) > prt.PacketDataSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTransactionTooBig, len(data), prt.PacketDataSize)
	}

	d := &decoder{buf: data}
	numSigs := d.readCompactU16()
	sigs := make([]prt.Signature, 0, numSigs)
	for i := 0; i < numSigs && d.err == nil; i++ {
		var sig prt.Signature
		copy(sig[:], d.readBytes(prt.SignatureLength))
		sigs = append(sigs, sig)
	}

	m := decodeMessage(d)
	if d.err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", d.err)
	}
	if d.off != len(data) {
		return nil, fmt.Errorf("failed to decode transaction: %d trailing bytes", len(data)-d.off)
	}

	return &Transaction{Signatures: sigs, Message: *m}, nil
}
