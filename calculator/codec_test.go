package calculator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequestLayout(t *testing.T) {
	data := EncodeRequest(OperationRequest{Opcode: OpSub, Operand1: 7, Operand2: 0x01020304})
	assert.Equal(t, []byte{1, 7, 0, 0, 0, 4, 3, 2, 1}, data)
	assert.Len(t, data, RequestSize)
}

func TestRequestRoundTrip(t *testing.T) {
	for _, req := range []OperationRequest{
		{Opcode: OpAdd, Operand1: 0, Operand2: 0},
		{Opcode: OpAdd, Operand1: 7, Operand2: 5},
		{Opcode: OpSub, Operand1: 4294967295, Operand2: 1},
	} {
		got, err := DecodeRequest(EncodeRequest(req))
		require.NoError(t, err)
		assert.Equal(t, req, got)
	}
}

func TestDecodeRequestRejects(t *testing.T) {
	_, err := DecodeRequest([]byte{0, 1, 2})
	assert.True(t, errors.Is(err, ErrMalformedRequest))

	data := EncodeRequest(OperationRequest{Opcode: OpAdd, Operand1: 1, Operand2: 2})
	data[0] = 9
	_, err = DecodeRequest(data)
	assert.True(t, errors.Is(err, ErrUnknownOperation))
}

func TestStateRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 12, 4294967292, 4294967295} {
		data := EncodeState(StateRecord{Result: v})
		require.Len(t, data, StateSize)

		got, err := DecodeState(data)
		require.NoError(t, err)
		assert.Equal(t, v, got.Result)
	}
	assert.Equal(t, []byte{12, 0, 0, 0}, EncodeState(StateRecord{Result: 12}))
}

func TestDecodeStateWrongSize(t *testing.T) {
	for _, data := range [][]byte{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		_, err := DecodeState(data)
		assert.ErrorIs(t, err, ErrMalformedState)
	}
}

func TestAccountSizeIsFixed(t *testing.T) {
	assert.Equal(t, uint64(StateSize), AccountSize)
	assert.Len(t, EncodeState(StateRecord{Result: 4294967295}), int(AccountSize))
}

func TestParseOpcode(t *testing.T) {
	op, err := ParseOpcode("add")
	require.NoError(t, err)
	assert.Equal(t, OpAdd, op)

	op, err = ParseOpcode(" SUB ")
	require.NoError(t, err)
	assert.Equal(t, OpSub, op)

	for _, name := range []string{"mul", "", "addition"} {
		_, err := ParseOpcode(name)
		assert.ErrorIs(t, err, ErrUnknownOperation, name)
	}
}

func TestApplyWraps(t *testing.T) {
	assert.Equal(t, uint32(12), Apply(StateRecord{}, OperationRequest{Opcode: OpAdd, Operand1: 7, Operand2: 5}).Result)
	assert.Equal(t, uint32(4294967292), Apply(StateRecord{Result: 1}, OperationRequest{Opcode: OpSub, Operand1: 5}).Result)
	assert.Equal(t, uint32(0), Apply(StateRecord{Result: 4294967295}, OperationRequest{Opcode: OpAdd, Operand1: 1}).Result)
	assert.Equal(t, uint32(5), Apply(StateRecord{Result: 12}, OperationRequest{Opcode: OpSub, Operand1: 4, Operand2: 3}).Result)
}

func TestExitCodeAndDescribe(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))

	seen := map[int]bool{}
	for _, k := range errorKinds {
		assert.False(t, seen[k.code], "duplicate exit code %d", k.code)
		seen[k.code] = true
		assert.Equal(t, k.code, ExitCode(k.err))
	}

	_, err := ParseOpcode("mul")
	assert.Contains(t, Describe(err), "unknown operation")
}
