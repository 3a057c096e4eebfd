package server

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/loxvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_Arithmetic(t *testing.T) {
	svc := newTestChunkService(false)

	resp, err := svc.Run(bg(), connectReq(encodeChunk(t, "test chunk", arithmeticChunk())))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	fields := resp.Msg.GetFields()
	if got := fields["result"].GetStringValue(); got != "OK" {
		t.Errorf("result = %q, want OK", got)
	}
	if got := fields["output"].GetStringValue(); got != "-0.45454545454545453\n" {
		t.Errorf("output = %q", got)
	}
	if got := fields["error"].GetStringValue(); got != "" {
		t.Errorf("error = %q, want empty", got)
	}
	if got := fields["trace"].GetStringValue(); got != "" {
		t.Errorf("trace = %q, want empty when tracing is off", got)
	}
	if _, err := uuid.Parse(fields["runId"].GetStringValue()); err != nil {
		t.Errorf("runId %q is not a UUID: %v", fields["runId"].GetStringValue(), err)
	}
}

func TestRun_Trace(t *testing.T) {
	svc := newTestChunkService(true)

	resp, err := svc.Run(bg(), connectReq(encodeChunk(t, "test chunk", arithmeticChunk())))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	trace := resp.Msg.GetFields()["trace"].GetStringValue()
	if !strings.Contains(trace, "[ 2.0 ][ 3.0 ]") {
		t.Errorf("trace missing stack line:\n%s", trace)
	}
	if !strings.Contains(trace, "0006    | RETURN") {
		t.Errorf("trace missing RETURN:\n%s", trace)
	}
}

func TestRun_RuntimeErrorInResponse(t *testing.T) {
	svc := newTestChunkService(false)

	c := bytecode.NewChunk()
	c.Emit(bytecode.OpNegate, 5)
	c.Emit(bytecode.OpReturn, 5)

	resp, err := svc.Run(bg(), connectReq(encodeChunk(t, "underflow", c)))
	if err != nil {
		t.Fatalf("Run returned transport error: %v", err)
	}
	fields := resp.Msg.GetFields()
	if got := fields["result"].GetStringValue(); got != "RUNTIME_ERROR" {
		t.Errorf("result = %q, want RUNTIME_ERROR", got)
	}
	if got := fields["error"].GetStringValue(); !strings.Contains(got, "[line 5]") || !strings.Contains(got, "stack underflow") {
		t.Errorf("error = %q", got)
	}
}

func TestRun_InvalidInput(t *testing.T) {
	svc := newTestChunkService(false)

	tests := []struct {
		name string
		msg  *wrapperspb.BytesValue
	}{
		{"empty", wrapperspb.Bytes(nil)},
		{"garbage", wrapperspb.Bytes([]byte{0xde, 0xad, 0xbe, 0xef})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(bg(), connectReq(tt.msg))
			if connect.CodeOf(err) != connect.CodeInvalidArgument {
				t.Errorf("code = %v, want InvalidArgument (err %v)", connect.CodeOf(err), err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Disassemble
// ---------------------------------------------------------------------------

func TestDisassemble(t *testing.T) {
	svc := newTestChunkService(false)

	resp, err := svc.Disassemble(bg(), connectReq(encodeChunk(t, "test chunk", arithmeticChunk())))
	if err != nil {
		t.Fatalf("Disassemble returned error: %v", err)
	}
	if want := arithmeticChunk().DisassembleString("test chunk"); resp.Msg.GetValue() != want {
		t.Errorf("listing =\n%s\nwant\n%s", resp.Msg.GetValue(), want)
	}
}

func TestDisassemble_InvalidInput(t *testing.T) {
	svc := newTestChunkService(false)

	_, err := svc.Disassemble(bg(), connectReq(wrapperspb.Bytes(nil)))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

// ---------------------------------------------------------------------------
// Scan
// ---------------------------------------------------------------------------

func TestScan(t *testing.T) {
	svc := newTestChunkService(false)

	resp, err := svc.Scan(bg(), connectReq(wrapperspb.String("print 1 + @;")))
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	tokens := resp.Msg.GetFields()["tokens"].GetListValue().GetValues()
	wantTypes := []string{"PRINT", "NUMBER", "PLUS", "ERROR", "SEMICOLON", "EOF"}
	if len(tokens) != len(wantTypes) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(wantTypes))
	}
	for i, want := range wantTypes {
		if got := tokens[i].GetStructValue().GetFields()["type"].GetStringValue(); got != want {
			t.Errorf("token[%d].type = %q, want %q", i, got, want)
		}
	}

	num := tokens[1].GetStructValue().GetFields()
	if num["lexeme"].GetStringValue() != "1" || num["start"].GetNumberValue() != 6 || num["line"].GetNumberValue() != 1 {
		t.Errorf("number token = %v", num)
	}

	bad := tokens[3].GetStructValue().GetFields()
	if bad["message"].GetStringValue() != "Unexpected character." {
		t.Errorf("error token message = %q", bad["message"].GetStringValue())
	}

	errs := resp.Msg.GetFields()["errors"].GetListValue().GetValues()
	if len(errs) != 1 || errs[0].GetStringValue() != "[line 1] Error: Unexpected character." {
		t.Errorf("errors = %v", errs)
	}
}

func TestScan_ErrorsMatchDiagnostics(t *testing.T) {
	svc := newTestChunkService(false)

	source := "a @\n\"open"
	resp, err := svc.Scan(bg(), connectReq(wrapperspb.String(source)))
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	errs := resp.Msg.GetFields()["errors"].GetListValue().GetValues()
	want := []string{
		"[line 1] Error: Unexpected character.",
		"[line 2] Error: Unterminated string.",
	}
	if len(errs) != len(want) {
		t.Fatalf("got %d errors, want %d: %v", len(errs), len(want), errs)
	}
	for i := range want {
		if got := errs[i].GetStringValue(); got != want[i] {
			t.Errorf("errors[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestScan_Clean(t *testing.T) {
	svc := newTestChunkService(false)

	resp, err := svc.Scan(bg(), connectReq(wrapperspb.String("")))
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	fields := resp.Msg.GetFields()
	if n := len(fields["tokens"].GetListValue().GetValues()); n != 1 {
		t.Errorf("got %d tokens for empty source, want 1 (EOF)", n)
	}
	if n := len(fields["errors"].GetListValue().GetValues()); n != 0 {
		t.Errorf("got %d errors, want 0", n)
	}
}

// ---------------------------------------------------------------------------
// Over HTTP
// ---------------------------------------------------------------------------

func TestChunkServer_HTTP(t *testing.T) {
	s := New(WithStackCapacity(8))
	defer s.Stop()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	run := connect.NewClient[wrapperspb.BytesValue, structpb.Struct](ts.Client(), ts.URL+RunProcedure)
	resp, err := run.CallUnary(bg(), connect.NewRequest(encodeChunk(t, "test chunk", arithmeticChunk())))
	if err != nil {
		t.Fatalf("Run over HTTP: %v", err)
	}
	if got := resp.Msg.GetFields()["output"].GetStringValue(); got != "-0.45454545454545453\n" {
		t.Errorf("output = %q", got)
	}

	_, err = run.CallUnary(bg(), connect.NewRequest(wrapperspb.Bytes([]byte("nope"))))
	var cerr *connect.Error
	if !errors.As(err, &cerr) || cerr.Code() != connect.CodeInvalidArgument {
		t.Errorf("bad chunk err = %v, want InvalidArgument", err)
	}

	disasm := connect.NewClient[wrapperspb.BytesValue, wrapperspb.StringValue](ts.Client(), ts.URL+DisassembleProcedure)
	listing, err := disasm.CallUnary(bg(), connect.NewRequest(encodeChunk(t, "over http", arithmeticChunk())))
	if err != nil {
		t.Fatalf("Disassemble over HTTP: %v", err)
	}
	if !strings.HasPrefix(listing.Msg.GetValue(), "== over http ==\n0000  123 CONSTANT") {
		t.Errorf("listing = %q", listing.Msg.GetValue())
	}

	scan := connect.NewClient[wrapperspb.StringValue, structpb.Struct](ts.Client(), ts.URL+ScanProcedure)
	tokens, err := scan.CallUnary(bg(), connect.NewRequest(wrapperspb.String("var x;")))
	if err != nil {
		t.Fatalf("Scan over HTTP: %v", err)
	}
	if n := len(tokens.Msg.GetFields()["tokens"].GetListValue().GetValues()); n != 4 {
		t.Errorf("got %d tokens, want 4", n)
	}
}

func TestChunkServer_GRPC(t *testing.T) {
	s := New()
	defer s.Stop()

	ts := httptest.NewUnstartedServer(s.Handler())
	ts.EnableHTTP2 = true
	ts.StartTLS()
	defer ts.Close()

	run := connect.NewClient[wrapperspb.BytesValue, structpb.Struct](ts.Client(), ts.URL+RunProcedure, connect.WithGRPC())
	resp, err := run.CallUnary(bg(), connect.NewRequest(encodeChunk(t, "grpc", arithmeticChunk())))
	if err != nil {
		t.Fatalf("Run over gRPC: %v", err)
	}
	if got := resp.Msg.GetFields()["result"].GetStringValue(); got != "OK" {
		t.Errorf("result = %q, want OK", got)
	}
}
