package server

import (
	"context"
	"io"
	"os"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/loxvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

var testWorker *VMWorker

func TestMain(m *testing.M) {
	testWorker = NewVMWorker(bytecode.New(bytecode.WithOutput(io.Discard)))

	code := m.Run()

	testWorker.Stop()
	os.Exit(code)
}

// newTestChunkService creates a ChunkService backed by the shared worker.
func newTestChunkService(trace bool) *ChunkService {
	return NewChunkService(testWorker, trace)
}

// arithmeticChunk builds -((2 + 3) / 11) on line 123.
func arithmeticChunk() *bytecode.Chunk {
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

// encodeChunk wraps a chunk in a BytesValue the way clients send it.
func encodeChunk(t *testing.T, name string, c *bytecode.Chunk) *wrapperspb.BytesValue {
	t.Helper()
	data, err := bytecode.MarshalChunk(name, c)
	if err != nil {
		t.Fatalf("MarshalChunk: %v", err)
	}
	return wrapperspb.Bytes(data)
}

// ---------------------------------------------------------------------------
// Request builder helpers
// ---------------------------------------------------------------------------

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}
