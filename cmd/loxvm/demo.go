package main

import (
	"fmt"

	"github.com/chazu/loxvm/pkg/bytecode"
)

// demoChunk builds -((2 + 3) / 11), all on line 123.
func demoChunk() *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.EmitConstant(2, 123)
	c.EmitConstant(3, 123)
	c.Emit(bytecode.OpAdd, 123)
	c.EmitConstant(11, 123)
	c.Emit(bytecode.OpDivide, 123)
	c.Emit(bytecode.OpNegate, 123)
	c.Emit(bytecode.OpReturn, 123)
	return c
}

// testChunk is the smallest useful chunk: load 1.2 and return it.
func testChunk() *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.EmitConstant(1.2, 123)
	c.Emit(bytecode.OpReturn, 123)
	return c
}

// handleDemoCommand processes the `loxvm demo` subcommand.
// Usage:
//
//	loxvm demo                    # disassemble the arithmetic chunk
//	loxvm demo -run               # ... then interpret it
//	loxvm demo -o expr.loxc       # ... and save it as a chunk file
//	loxvm demo -test-chunk -run   # use the CONSTANT 1.2 / RETURN chunk instead
func (c *cli) handleDemoCommand(args []string) int {
	flags := c.newFlagSet("demo", "demo [-o FILE.loxc] [-run] [-trace] [-test-chunk]")
	output := flags.String("o", "", "Write the chunk to this file")
	runIt := flags.Bool("run", false, "Interpret the chunk after disassembling it")
	trace := flags.Bool("trace", c.cfg.VM.Trace, "Trace execution (with -run)")
	useTest := flags.Bool("test-chunk", false, "Use the single-constant test chunk")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() != 0 {
		flags.Usage()
		return exitUsage
	}

	chunk := demoChunk()
	if *useTest {
		chunk = testChunk()
	}
	const name = "test chunk"

	chunk.Disassemble(c.stdout, name)

	if *output != "" {
		if err := bytecode.WriteChunkFile(*output, name, chunk); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitIOErr
		}
		cliLog.Infof("wrote %s", *output)
	}

	if *runIt {
		return c.interpret(chunk, *trace)
	}
	return exitOK
}
