package bytecode

import "fmt"

// Chunk is an executable instruction sequence. Lines[i] is the source line
// that produced Code[i]; the two slices always have the same length.
// Chunks are only ever appended to.
type Chunk struct {
	Code  []Instruction `cbor:"1,keyasint"`
	Lines []int         `cbor:"2,keyasint"`

	// Constant pool. CONSTANT carries its value inline, so nothing in the
	// VM reads this yet.
	Constants []Value `cbor:"3,keyasint,omitempty"`
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:  make([]Instruction, 0, 16),
		Lines: make([]int, 0, 16),
	}
}

// Write appends an instruction produced by the given source line and
// returns its offset. No stack or type checks happen here.
func (c *Chunk) Write(in Instruction, line int) int {
	offset := len(c.Code)
	c.Code = append(c.Code, in)
	c.Lines = append(c.Lines, line)
	return offset
}

// Emit appends an operand-less instruction.
func (c *Chunk) Emit(op Opcode, line int) int {
	return c.Write(Simple(op), line)
}

// EmitConstant appends a CONSTANT instruction carrying v.
func (c *Chunk) EmitConstant(v Value, line int) int {
	return c.Write(Constant(v), line)
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of instructions in the chunk.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// Line returns the source line of the instruction at offset, or 0 if the
// offset is out of range.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// Validate checks the structural invariants of a chunk that came from
// outside the process: parallel code/line tables and known opcodes.
func (c *Chunk) Validate() error {
	if len(c.Code) != len(c.Lines) {
		return fmt.Errorf("%w: %d instructions but %d line entries", ErrMalformedChunk, len(c.Code), len(c.Lines))
	}
	for i, in := range c.Code {
		if !in.Op.Valid() {
			return fmt.Errorf("%w: %s at offset %04d", ErrMalformedChunk, in.Op, i)
		}
	}
	return nil
}
