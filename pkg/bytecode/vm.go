package bytecode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

// vmLogger is looked up on use so it picks up whatever backend the
// program configured after package initialisation.
func vmLogger() commonlog.Logger {
	return commonlog.GetLogger("loxvm.vm")
}

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrUnknownOpcode  = errors.New("unknown opcode")
)

// DefaultStackCapacity is the initial operand stack capacity. The stack
// grows past it as needed.
const DefaultStackCapacity = 256

// InterpretResult is the terminal status of a run.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "OK"
	case InterpretCompileError:
		return "COMPILE_ERROR"
	case InterpretRuntimeError:
		return "RUNTIME_ERROR"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// RuntimeError reports a failure while executing a chunk, with the source
// line of the offending instruction.
type RuntimeError struct {
	Line   int
	Offset int
	Op     Opcode
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] in chunk: %v executing %s at %04d", e.Line, e.Err, e.Op, e.Offset)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Option configures a VM.
type Option func(*VM)

// WithOutput sets where RETURN prints its value. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithTrace enables the per-step trace (stack contents followed by the
// disassembled instruction) written to w. A nil writer disables tracing.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) { vm.trace = w }
}

// WithStackCapacity sets the initial operand stack capacity.
func WithStackCapacity(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.stackCapacity = n
		}
	}
}

// VM executes bytecode chunks. A VM is single-threaded; it owns the chunk
// it is running until Interpret returns.
type VM struct {
	chunk *Chunk  // Chunk being executed
	ip    int     // Instruction pointer
	stack []Value // Operand stack

	out           io.Writer
	trace         io.Writer
	stackCapacity int
}

// New creates a VM.
func New(opts ...Option) *VM {
	vm := &VM{
		out:           os.Stdout,
		stackCapacity: DefaultStackCapacity,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.stack = make([]Value, 0, vm.stackCapacity)
	return vm
}

// Interpret runs chunk on a fresh VM built from opts.
func Interpret(chunk *Chunk, opts ...Option) (InterpretResult, error) {
	return New(opts...).Interpret(chunk)
}

// SetOutput sets the RETURN output writer.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetTrace sets the trace writer; nil disables tracing.
func (vm *VM) SetTrace(w io.Writer) {
	vm.trace = w
}

// Interpret resets the VM and runs chunk to completion. It stops at the
// first RETURN or when the code is exhausted; both report InterpretOK.
// A nil chunk is a runtime error wrapping ErrMalformedChunk.
// The caller must not modify chunk while it runs.
func (vm *VM) Interpret(chunk *Chunk) (InterpretResult, error) {
	if chunk == nil {
		return InterpretRuntimeError, fmt.Errorf("interpret: %w: nil chunk", ErrMalformedChunk)
	}

	vm.chunk = chunk
	vm.ip = 0
	vm.stack = vm.stack[:0]
	defer func() { vm.chunk = nil }()

	vmLogger().Debugf("interpreting %d instructions", chunk.Len())

	if err := vm.run(); err != nil {
		vmLogger().Errorf("%s", err)
		return InterpretRuntimeError, err
	}
	return InterpretOK, nil
}

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []Value {
	out := make([]Value, len(vm.stack))
	copy(out, vm.stack)
	return out
}

// IP returns the instruction pointer left by the last run.
func (vm *VM) IP() int {
	return vm.ip
}

// run is the main execution loop.
func (vm *VM) run() error {
	code := vm.chunk.Code
	for vm.ip < len(code) {
		if vm.trace != nil {
			vm.traceStep()
		}

		offset := vm.ip
		in := code[vm.ip]
		vm.ip++

		switch in.Op {
		case OpReturn:
			if n := len(vm.stack); n > 0 {
				v := vm.stack[n-1]
				vm.stack = vm.stack[:n-1]
				v.Print(vm.out)
			}
			return nil

		case OpConstant:
			vm.push(in.Operand)

		case OpNegate:
			if len(vm.stack) < 1 {
				return vm.runtimeError(offset, in.Op, ErrStackUnderflow)
			}
			vm.stack[len(vm.stack)-1] = -vm.stack[len(vm.stack)-1]

		case OpAdd, OpSubtract, OpMultiply, OpDivide:
			if len(vm.stack) < 2 {
				return vm.runtimeError(offset, in.Op, ErrStackUnderflow)
			}
			b := vm.pop()
			a := vm.pop()
			vm.push(binaryOp(in.Op, a, b))

		default:
			return vm.runtimeError(offset, in.Op, ErrUnknownOpcode)
		}
	}
	return nil
}

// binaryOp applies an arithmetic opcode. The second-popped value is the
// left-hand side. Division follows IEEE 754, so x/0 yields inf or NaN.
func binaryOp(op Opcode, a, b Value) Value {
	switch op {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	default:
		return a / b
	}
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	n := len(vm.stack)
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

// traceStep writes the stack followed by the instruction about to execute.
func (vm *VM) traceStep() {
	fmt.Fprint(vm.trace, "          ")
	for _, v := range vm.stack {
		fmt.Fprintf(vm.trace, "[ %s ]", v)
	}
	fmt.Fprintln(vm.trace)
	vm.chunk.DisassembleInstruction(vm.trace, vm.ip)
}

func (vm *VM) runtimeError(offset int, op Opcode, err error) error {
	return &RuntimeError{
		Line:   vm.chunk.Line(offset),
		Offset: offset,
		Op:     op,
		Err:    err,
	}
}
