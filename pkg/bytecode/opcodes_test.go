package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
		if !op.Valid() {
			t.Errorf("Opcode %s reports !Valid()", op)
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 7 {
		t.Errorf("OpcodeCount() = %d, want 7", got)
	}
	ops := AllOpcodes()
	for i := 1; i < len(ops); i++ {
		if ops[i-1] >= ops[i] {
			t.Errorf("AllOpcodes not sorted: %v", ops)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpReturn, "RETURN"},
		{OpConstant, "CONSTANT"},
		{OpNegate, "NEGATE"},
		{OpAdd, "ADD"},
		{OpSubtract, "SUBTRACT"},
		{OpMultiply, "MULTIPLY"},
		{OpDivide, "DIVIDE"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); got != "UNKNOWN(0xEE)" {
		t.Errorf("unknown opcode String() = %q, want %q", got, "UNKNOWN(0xEE)")
	}
	if op.Valid() {
		t.Error("0xEE should not be valid")
	}
}

func TestOpcodeStackEffects(t *testing.T) {
	for _, op := range []Opcode{OpAdd, OpSubtract, OpMultiply, OpDivide} {
		info := GetOpcodeInfo(op)
		if info.StackPop != 2 || info.StackPush != 1 {
			t.Errorf("%s stack effect = -%d +%d, want -2 +1", op, info.StackPop, info.StackPush)
		}
		if !op.IsBinary() {
			t.Errorf("%s.IsBinary() = false", op)
		}
	}
	for _, op := range []Opcode{OpReturn, OpConstant, OpNegate} {
		if op.IsBinary() {
			t.Errorf("%s.IsBinary() = true", op)
		}
	}
}

func TestInstructionString(t *testing.T) {
	if got := Constant(1.2).String(); got != "CONSTANT 1.2" {
		t.Errorf("Constant(1.2).String() = %q", got)
	}
	if got := Simple(OpNegate).String(); got != "NEGATE" {
		t.Errorf("Simple(OpNegate).String() = %q", got)
	}
}
