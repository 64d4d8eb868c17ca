package calculator

import (
	"encoding/binary"
	"fmt"
)

// Fixed wire layouts, little-endian.
//
//	request: opcode u8 | operand1 u32 | operand2 u32
//	state:   result u32
const (
	RequestSize = 1 + 4 + 4
	StateSize   = 4
)

type OperationRequest struct {
	Opcode   Opcode
	Operand1 uint32
	Operand2 uint32
}

// StateRecord is the persisted payload of the calculator account
type StateRecord struct {
	Result uint32
}

func EncodeRequest(req OperationRequest) []byte {
	buf := make([]byte, RequestSize)
	buf[0] = byte(req.Opcode)
	binary.LittleEndian.PutUint32(buf[1:5], req.Operand1)
	binary.LittleEndian.PutUint32(buf[5:9], req.Operand2)
	return buf
}

func DecodeRequest(data []byte) (OperationRequest, error) {
	if len(data) != RequestSize {
		return OperationRequest{}, fmt.Errorf("%w: %d bytes (need %d)", ErrMalformedRequest, len(data), RequestSize)
	}

	req := OperationRequest{
		Opcode:   Opcode(data[0]),
		Operand1: binary.LittleEndian.Uint32(data[1:5]),
		Operand2: binary.LittleEndian.Uint32(data[5:9]),
	}
	if !req.Opcode.Valid() {
		return OperationRequest{}, fmt.Errorf("%w: opcode %d", ErrUnknownOperation, data[0])
	}
	return req, nil
}

func EncodeState(rec StateRecord) []byte {
	buf := make([]byte, StateSize)
	binary.LittleEndian.PutUint32(buf, rec.Result)
	return buf
}

func DecodeState(data []byte) (StateRecord, error) {
	if len(data) != StateSize {
		return StateRecord{}, fmt.Errorf("%w: %d bytes (need %d)", ErrMalformedState, len(data), StateSize)
	}
	return StateRecord{Result: binary.LittleEndian.Uint32(data)}, nil
}
