package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/loxvm/pkg/bytecode"
)

var serverLog = commonlog.GetLogger("loxvm.server")

// ChunkServer serves ChunkService over HTTP/1.1 and unencrypted HTTP/2,
// so Connect, gRPC and gRPC-Web clients all use the same handlers.
type ChunkServer struct {
	worker *VMWorker
	mux    *http.ServeMux
	http   *http.Server

	stopOnce sync.Once
	stopped  chan struct{} // closed once Stop has finished
}

// ServerOption configures a ChunkServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	trace         bool
	stackCapacity int
}

// WithTrace makes Run responses carry the execution trace.
func WithTrace(on bool) ServerOption {
	return func(c *serverConfig) { c.trace = on }
}

// WithStackCapacity sets the initial stack capacity of the server's VM.
func WithStackCapacity(n int) ServerOption {
	return func(c *serverConfig) { c.stackCapacity = n }
}

// New creates a ChunkServer with its own VM and worker.
func New(opts ...ServerOption) *ChunkServer {
	cfg := &serverConfig{
		stackCapacity: bytecode.DefaultStackCapacity,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewVMWorker(bytecode.New(bytecode.WithStackCapacity(cfg.stackCapacity)))
	s := &ChunkServer{
		worker:  worker,
		mux:     http.NewServeMux(),
		stopped: make(chan struct{}),
	}

	// gRPC needs HTTP/2; without TLS that means h2c.
	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)
	s.http = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		Protocols:         &protocols,
	}

	svc := NewChunkService(worker, cfg.trace)
	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, svc.Run))
	s.mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, svc.Disassemble))
	s.mux.Handle(ScanProcedure, connect.NewUnaryHandler(ScanProcedure, svc.Scan))

	return s
}

// Handler returns the HTTP handler serving all procedures.
func (s *ChunkServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe listens on addr and serves until Stop is called.
// The address should be in the form "host:port" or ":port".
func (s *ChunkServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called. After Stop it
// returns nil once shutdown has finished draining requests.
func (s *ChunkServer) Serve(ln net.Listener) error {
	defer ln.Close()

	addr := ln.Addr().String()
	serverLog.Noticef("chunk service listening on %s", addr)
	serverLog.Infof("  run:         http://%s%s", addr, RunProcedure)
	serverLog.Infof("  disassemble: http://%s%s", addr, DisassembleProcedure)
	serverLog.Infof("  scan:        http://%s%s", addr, ScanProcedure)

	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-s.stopped
		return nil
	}
	return err
}

// Stop shuts down the HTTP server and the VM worker. It is safe to call
// more than once and from several goroutines; every call returns after
// shutdown has completed.
func (s *ChunkServer) Stop() {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			serverLog.Warningf("shutdown: %s", err)
		}
		s.worker.Stop()
		close(s.stopped)
	})
}
