package bytecode

import (
	"fmt"
	"sort"
)

// Opcode represents a bytecode instruction kind.
type Opcode byte

const (
	OpReturn   Opcode = 0x00 // Pop a value (if any), print it, halt
	OpConstant Opcode = 0x01 // Push the instruction's inline operand
	OpNegate   Opcode = 0x02 // Negate top of stack
	OpAdd      Opcode = 0x03 // Pop two, push sum
	OpSubtract Opcode = 0x04 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x05 // Pop two, push product
	OpDivide   Opcode = 0x06 // Pop two, push quotient (IEEE semantics, no zero check)
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string // Human-readable name
	StackPop  int    // How many values popped from stack
	StackPush int    // How many values pushed to stack
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpReturn:   {"RETURN", 1, 0},
	OpConstant: {"CONSTANT", 0, 1},
	OpNegate:   {"NEGATE", 1, 1},
	OpAdd:      {"ADD", 2, 1},
	OpSubtract: {"SUBTRACT", 2, 1},
	OpMultiply: {"MULTIPLY", 2, 1},
	OpDivide:   {"DIVIDE", 2, 1},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0xNN)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op belongs to the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsBinary reports whether op pops two operands and pushes one result.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpDivide
}

// AllOpcodes returns every defined opcode in ascending order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	sort.Slice(opcodes, func(i, j int) bool { return opcodes[i] < opcodes[j] })
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

// Instruction is one slot of a chunk. Operand is only meaningful for
// OpConstant, which carries its value inline rather than as a pool index.
type Instruction struct {
	Op      Opcode `cbor:"1,keyasint"`
	Operand Value  `cbor:"2,keyasint"`
}

// Constant returns a CONSTANT instruction pushing v.
func Constant(v Value) Instruction {
	return Instruction{Op: OpConstant, Operand: v}
}

// Simple returns an operand-less instruction.
func Simple(op Opcode) Instruction {
	return Instruction{Op: op}
}

func (in Instruction) String() string {
	if in.Op == OpConstant {
		return fmt.Sprintf("%s %s", in.Op, in.Operand)
	}
	return in.Op.String()
}
