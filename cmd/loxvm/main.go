// loxvm CLI - scan Lox source, and build, disassemble and run bytecode chunks
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/loxvm/config"
)

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65
	exitSoftware = 70
	exitIOErr    = 74
)

var cliLog = commonlog.GetLogger("loxvm.cli")

// cli carries what every subcommand needs.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses global flags, loads config and dispatches to a subcommand.
// It returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("loxvm", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to loxvm.toml (default: search upward from the working directory)")
	verbose := flags.Bool("v", false, "Verbose output (raise log verbosity by one)")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: loxvm [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  scan FILE                 Print the token listing of a Lox source file\n")
		fmt.Fprintf(stderr, "  disasm FILE.loxc          Disassemble a chunk file\n")
		fmt.Fprintf(stderr, "  run [-trace] FILE.loxc    Interpret a chunk file\n")
		fmt.Fprintf(stderr, "  demo [-o FILE] [-run]     Build the sample arithmetic chunk\n")
		fmt.Fprintf(stderr, "  serve [-addr ADDR]        Serve the chunk service over HTTP\n")
		fmt.Fprintf(stderr, "  lsp                       Run the language server on stdio\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		if errors.Is(err, fs.ErrNotExist) {
			return exitIOErr
		}
		return exitDataErr
	}

	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity++
	}
	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(verbosity, logPath)
	if cfg.Path != "" {
		cliLog.Infof("using config %s", cfg.Path)
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return exitUsage
	}

	c := &cli{stdout: stdout, stderr: stderr, cfg: cfg}
	switch rest[0] {
	case "scan":
		return c.handleScanCommand(rest[1:])
	case "disasm":
		return c.handleDisasmCommand(rest[1:])
	case "run":
		return c.handleRunCommand(rest[1:])
	case "demo":
		return c.handleDemoCommand(rest[1:])
	case "serve":
		return c.handleServeCommand(rest[1:])
	case "lsp":
		return c.handleLSPCommand(rest[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		flags.Usage()
		return exitUsage
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.FindAndLoad(".")
}

// ioExitCode picks the exit code for an error reading or writing a file.
func ioExitCode(err error) int {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitIOErr
	}
	return exitDataErr
}
