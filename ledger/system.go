package ledger

import (
	"encoding/binary"
	"fmt"

	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// System program instruction indexes
const (
	SystemCreateAccount         uint32 = 0
	SystemAssign                uint32 = 1
	SystemTransfer              uint32 = 2
	SystemCreateAccountWithSeed uint32 = 3
)

// SystemInstruction is a decoded system program instruction
type SystemInstruction struct {
	Kind     uint32
	Lamports uint64
	Space    uint64
	Owner    prt.PublicKey
	Base     prt.PublicKey
	Seed     string
}

// CreateAccount allocates a new signer account funded by from
func CreateAccount(from, newAccount prt.PublicKey, lamports, space uint64, owner prt.PublicKey) Instruction {
	data := make([]byte, 0, 4+8+8+32)
	data = binary.LittleEndian.AppendUint32(data, SystemCreateAccount)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)

	return Instruction{
		ProgramID: prt.SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: newAccount, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

// Transfer moves lamports between system owned accounts
func Transfer(from, to prt.PublicKey, lamports uint64) Instruction {
	data := make([]byte, 0, 4+8)
	data = binary.LittleEndian.AppendUint32(data, SystemTransfer)
	data = binary.LittleEndian.AppendUint64(data, lamports)

	return Instruction{
		ProgramID: prt.SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}

// CreateAccountWithSeed allocates the account at CreateWithSeed(base, seed, owner).
// The base account only needs listing separately when it differs from the funder.
func CreateAccountWithSeed(from, newAccount, base prt.PublicKey, seed string, lamports, space uint64, owner prt.PublicKey) Instruction {
	data := make([]byte, 0, 4+32+8+len(seed)+8+8+32)
	data = binary.LittleEndian.AppendUint32(data, SystemCreateAccountWithSeed)
	data = append(data, base[:]...)
	data = binary.LittleEndian.AppendUint64(data, uint64(len(seed)))
	data = append(data, seed...)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)

	accounts := []AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: newAccount, IsSigner: false, IsWritable: true},
	}
	if base != from {
		accounts = append(accounts, AccountMeta{PublicKey: base, IsSigner: true, IsWritable: false})
	}

	return Instruction{
		ProgramID: prt.SystemProgramID,
		Accounts:  accounts,
		Data:      data,
	}
}

// DecodeSystemInstruction parses system program instruction data
func DecodeSystemInstruction(data []byte) (*SystemInstruction, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("system instruction too short: %d bytes", len(data))
	}

	d := &decoder{buf: data, off: 4}
	ix := &SystemInstruction{Kind: binary.LittleEndian.Uint32(data)}

	readU64 := func() uint64 {
		b := d.readBytes(8)
		if b == nil {
			return 0
		}
		return binary.LittleEndian.Uint64(b)
	}
	readKey := func() prt.PublicKey {
		var pk prt.PublicKey
		copy(pk[:], d.readBytes(prt.PublicKeyLength))
		return pk
	}

	switch ix.Kind {
	case SystemCreateAccount:
		ix.Lamports = readU64()
		ix.Space = readU64()
		ix.Owner = readKey()
	case SystemAssign:
		ix.Owner = readKey()
	case SystemTransfer:
		ix.Lamports = readU64()
	case SystemCreateAccountWithSeed:
		ix.Base = readKey()
		seedLen := readU64()
		if seedLen > prt.MaxSeedLength {
			return nil, fmt.Errorf("seed too long: %d bytes", seedLen)
		}
		ix.Seed = string(d.readBytes(int(seedLen)))
		ix.Lamports = readU64()
		ix.Space = readU64()
		ix.Owner = readKey()
	default:
		return nil, fmt.Errorf("unsupported system instruction %d", ix.Kind)
	}

	if d.err != nil {
		return nil, fmt.Errorf("failed to decode system instruction: %w", d.err)
	}
	if d.off != len(data) {
		return nil, fmt.Errorf("failed to decode system instruction: %d trailing bytes", len(data)-d.off)
	}
	return ix, nil
}
