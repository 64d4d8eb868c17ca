package calculator

import (
	"fmt"
	"strings"
)

// Opcode selects the operation a request payload represents
type Opcode uint8

const (
	OpAdd Opcode = 0
	OpSub Opcode = 1
)

func (o Opcode) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the defined opcodes
func (o Opcode) Valid() bool {
	return o == OpAdd || o == OpSub
}

// ParseOpcode maps an operation name to its opcode
func ParseOpcode(name string) (Opcode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "add":
		return OpAdd, nil
	case "sub":
		return OpSub, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
}
