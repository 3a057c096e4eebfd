package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/loxvm/compiler"
	"github.com/chazu/loxvm/pkg/bytecode"
)

// ChunkServiceName is the fully-qualified service name.
const ChunkServiceName = "loxvm.v1.ChunkService"

// Procedure paths served by ChunkService.
const (
	RunProcedure         = "/" + ChunkServiceName + "/Run"
	DisassembleProcedure = "/" + ChunkServiceName + "/Disassemble"
	ScanProcedure        = "/" + ChunkServiceName + "/Scan"
)

// ChunkService runs, disassembles, and scans on behalf of remote clients.
// Chunks arrive in the CBOR chunk file encoding.
type ChunkService struct {
	worker *VMWorker
	trace  bool
}

// NewChunkService creates a ChunkService. When trace is set, Run captures
// the per-instruction trace alongside the output.
func NewChunkService(worker *VMWorker, trace bool) *ChunkService {
	return &ChunkService{worker: worker, trace: trace}
}

// runOutcome is what a Run produces on the worker goroutine.
type runOutcome struct {
	result bytecode.InterpretResult
	output string
	trace  string
	err    error
}

// Run interprets an encoded chunk and reports its result and output.
// Runtime errors are part of the response, not transport errors.
func (s *ChunkService) Run(
	ctx context.Context,
	req *connect.Request[wrapperspb.BytesValue],
) (*connect.Response[structpb.Struct], error) {
	name, chunk, err := decodeChunk(req.Msg)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	serverLog.Debugf("run %s: chunk %q, %d instructions", runID, name, chunk.Len())

	result, err := s.worker.Do(ctx, func(v *bytecode.VM) any {
		var out, trace bytes.Buffer
		v.SetOutput(&out)
		if s.trace {
			v.SetTrace(&trace)
		} else {
			v.SetTrace(nil)
		}
		res, runErr := v.Interpret(chunk)
		return &runOutcome{result: res, output: out.String(), trace: trace.String(), err: runErr}
	})
	if err != nil {
		return nil, connect.NewError(workerErrorCode(err), err)
	}

	outcome := result.(*runOutcome)
	errMsg := ""
	if outcome.err != nil {
		errMsg = outcome.err.Error()
		serverLog.Infof("run %s: %s", runID, errMsg)
	}

	msg, err := structpb.NewStruct(map[string]any{
		"runId":  runID,
		"result": outcome.result.String(),
		"output": outcome.output,
		"trace":  outcome.trace,
		"error":  errMsg,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// Disassemble returns the listing of an encoded chunk.
func (s *ChunkService) Disassemble(
	ctx context.Context,
	req *connect.Request[wrapperspb.BytesValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	name, chunk, err := decodeChunk(req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(wrapperspb.String(chunk.DisassembleString(name))), nil
}

// Scan tokenizes source and returns every token including EOF.
func (s *ChunkService) Scan(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	source := req.Msg.GetValue()

	tokens := compiler.Tokenize(source)
	list := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		entry := map[string]any{
			"type":   tok.Type.String(),
			"lexeme": tok.Lexeme(source),
			"line":   tok.Line,
			"start":  tok.Start,
			"length": tok.Length,
		}
		if tok.Type == compiler.TokenError {
			entry["message"] = tok.Message
		}
		list = append(list, entry)
	}

	errs := []any{}
	for _, d := range compiler.Diagnose(source) {
		errs = append(errs, d.String())
	}

	msg, err := structpb.NewStruct(map[string]any{
		"tokens": list,
		"errors": errs,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// decodeChunk unpacks a chunk file payload, mapping every failure to
// InvalidArgument.
func decodeChunk(msg *wrapperspb.BytesValue) (string, *bytecode.Chunk, error) {
	data := msg.GetValue()
	if len(data) == 0 {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("chunk is required"))
	}
	name, chunk, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return name, chunk, nil
}

// workerErrorCode maps a VMWorker.Do failure to a status code.
func workerErrorCode(err error) connect.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, ErrWorkerStopped):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}
