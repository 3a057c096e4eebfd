package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/loxvm/compiler"
	"github.com/chazu/loxvm/pkg/bytecode"
	"github.com/chazu/loxvm/server"
)

// newFlagSet creates a subcommand flag set reporting to the CLI's stderr.
func (c *cli) newFlagSet(name, usage string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	flags.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: loxvm %s\n", usage)
		flags.PrintDefaults()
	}
	return flags
}

// handleScanCommand processes the `loxvm scan` subcommand.
func (c *cli) handleScanCommand(args []string) int {
	flags := c.newFlagSet("scan", "scan FILE")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitUsage
	}

	path := flags.Arg(0)
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: cannot read %s: %v\n", path, err)
		return exitIOErr
	}

	if err := compiler.Compile(string(source), c.stdout); err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitDataErr
	}
	return exitOK
}

// handleDisasmCommand processes the `loxvm disasm` subcommand.
func (c *cli) handleDisasmCommand(args []string) int {
	flags := c.newFlagSet("disasm", "disasm FILE.loxc")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitUsage
	}

	name, chunk, err := bytecode.ReadChunkFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return ioExitCode(err)
	}
	chunk.Disassemble(c.stdout, name)
	return exitOK
}

// handleRunCommand processes the `loxvm run` subcommand.
func (c *cli) handleRunCommand(args []string) int {
	flags := c.newFlagSet("run", "run [-trace] FILE.loxc")
	trace := flags.Bool("trace", c.cfg.VM.Trace, "Print the stack and each instruction as it executes")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitUsage
	}

	_, chunk, err := bytecode.ReadChunkFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return ioExitCode(err)
	}
	return c.interpret(chunk, *trace)
}

// interpret runs chunk with output and trace on stdout.
func (c *cli) interpret(chunk *bytecode.Chunk, trace bool) int {
	opts := []bytecode.Option{
		bytecode.WithOutput(c.stdout),
		bytecode.WithStackCapacity(c.cfg.VM.StackCapacity),
	}
	if trace {
		opts = append(opts, bytecode.WithTrace(c.stdout))
	}

	result, err := bytecode.Interpret(chunk, opts...)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
	}
	switch result {
	case bytecode.InterpretCompileError:
		return exitDataErr
	case bytecode.InterpretRuntimeError:
		return exitSoftware
	default:
		return exitOK
	}
}

// handleServeCommand processes the `loxvm serve` subcommand.
func (c *cli) handleServeCommand(args []string) int {
	flags := c.newFlagSet("serve", "serve [-addr ADDR]")
	addr := flags.String("addr", c.cfg.Server.Addr, "Listen address (host:port or :port)")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	srv := server.New(
		server.WithTrace(c.cfg.VM.Trace),
		server.WithStackCapacity(c.cfg.VM.StackCapacity),
	)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		if _, ok := <-sigs; ok {
			cliLog.Notice("shutting down")
			srv.Stop()
		}
	}()

	// ListenAndServe returns only after Stop has drained the server, so
	// the process never exits mid-shutdown.
	err := srv.ListenAndServe(*addr)
	srv.Stop()
	if err != nil {
		fmt.Fprintf(c.stderr, "Server error: %v\n", err)
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return exitIOErr
		}
		return exitSoftware
	}
	return exitOK
}

// handleLSPCommand processes the `loxvm lsp` subcommand.
func (c *cli) handleLSPCommand(args []string) int {
	flags := c.newFlagSet("lsp", "lsp")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	if err := server.NewLSP().Run(); err != nil {
		fmt.Fprintf(c.stderr, "LSP error: %v\n", err)
		return exitSoftware
	}
	return exitOK
}
