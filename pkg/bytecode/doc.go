// Package bytecode provides the chunk format, disassembler and stack-based
// virtual machine that execute Lox bytecode.
//
// # Architecture Overview
//
//   - Opcodes: a closed set of seven instructions (RETURN, CONSTANT, NEGATE,
//     ADD, SUBTRACT, MULTIPLY, DIVIDE) with metadata in an info table.
//
//   - Chunk: an appendable instruction sequence with a parallel table of
//     source lines. CONSTANT carries its operand inline in the instruction;
//     the chunk's constant pool exists but execution never reads it.
//
//   - Disassembler: renders one trace line per instruction. Consecutive
//     instructions from the same source line show "|" instead of the line.
//
//   - VM: executes a chunk against a growable operand stack, advancing an
//     explicit instruction pointer. RETURN prints the popped value and halts.
//     Popping an empty stack is reported as a runtime error.
//
//   - Wire format: chunks are stored in ".loxc" files as a canonical CBOR
//     envelope tagged with the "LXBC" magic and a format version.
//
// # Result Taxonomy
//
// Interpret reports InterpretOK, InterpretCompileError or
// InterpretRuntimeError. The VM itself only produces OK and runtime errors;
// compile errors come from the compiler package's scanner diagnostics.
package bytecode
