package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes a labeled listing of every instruction in the chunk.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)

	offset := 0
	for offset < len(c.Code) {
		offset = c.DisassembleInstruction(w, offset)
	}
}

// DisassembleString returns the listing produced by Disassemble.
func (c *Chunk) DisassembleString(name string) string {
	var sb strings.Builder
	c.Disassemble(&sb, name)
	return sb.String()
}

// DisassembleInstruction writes one trace line for the instruction at
// offset and returns the offset of the next instruction. Every instruction
// occupies exactly one slot.
func (c *Chunk) DisassembleInstruction(w io.Writer, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Line(offset))
	}

	in := c.Code[offset]
	switch in.Op {
	case OpConstant:
		return constantInstruction(w, in, offset)
	case OpReturn, OpNegate, OpAdd, OpSubtract, OpMultiply, OpDivide:
		return simpleInstruction(w, in.Op, offset)
	default:
		// Not in the instruction set; prints as UNKNOWN(0xNN).
		return simpleInstruction(w, in.Op, offset)
	}
}

func simpleInstruction(w io.Writer, op Opcode, offset int) int {
	fmt.Fprintln(w, op)
	return offset + 1
}

// constantInstruction prints the inline operand; there is no pool index.
func constantInstruction(w io.Writer, in Instruction, offset int) int {
	fmt.Fprintf(w, "%-16s '%s'\n", in.Op, in.Operand)
	return offset + 1
}

// DisassembleToLines returns the disassembly as a slice of lines, without
// the header.
func (c *Chunk) DisassembleToLines() []string {
	if len(c.Code) == 0 {
		return nil
	}
	var sb strings.Builder
	for offset := 0; offset < len(c.Code); {
		offset = c.DisassembleInstruction(&sb, offset)
	}
	return strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
}
