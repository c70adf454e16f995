// Package grpc provides a lightweight JSON-over-TCP RPC framework for
// internal service-to-service calls: method registration, dispatch and
// request/response framing.
//
// Protocol: newline-delimited JSON over a persistent TCP connection.
// Requests on one connection are served concurrently and responses may
// arrive out of order; clients match them by ID.
//
// Example server:
//
//	s := grpc.NewServer()
//	s.Register(proto.MethodRecommend, func(ctx context.Context, req json.RawMessage) (any, error) {
//	    var r proto.RecommendRequest
//	    if err := json.Unmarshal(req, &r); err != nil {
//	        return nil, err
//	    }
//	    return svc.Recommend(ctx, ...)
//	})
//	s.Serve(":9000")
//
// Example client:
//
//	c, _ := grpc.Dial("localhost:9000")
//	var resp proto.RecommendResponse
//	c.Call(ctx, proto.MethodRecommend, &proto.RecommendRequest{Query: "ramen"}, &resp)
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

// HandlerFunc processes an RPC request and returns a response or error.
type HandlerFunc func(ctx context.Context, req json.RawMessage) (any, error)

// Request is the wire format for an RPC request. TimeoutMs, when set,
// bounds the handler's context on the server.
type Request struct {
	Method    string          `json:"method"`
	ID        string          `json:"id"`
	Params    json.RawMessage `json:"params"`
	TimeoutMs int64           `json:"timeout_ms,omitempty"`
}

// Response is the wire format for an RPC response. Kind carries the error
// class (see pkg/errors.Kind) so clients can branch without parsing text.
type Response struct {
	ID    string `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// Server is a lightweight JSON-over-TCP RPC server.
type Server struct {
	handlers map[string]HandlerFunc
	listener net.Listener
	conns    map[net.Conn]struct{}
	logger   *slog.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewServer creates a new RPC server.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[net.Conn]struct{}),
		logger:   slog.Default().With("component", "rpc-server"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a handler for the given RPC method name.
// Method names follow the "Service.Method" convention.
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Serve starts accepting TCP connections on the given address.
// It blocks until Stop is called.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ln)
}

// ServeListener accepts connections on ln until Stop is called.
func (s *Server) ServeListener(ln net.Listener) error {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ln.Close()
	}
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	var (
		inflight sync.WaitGroup
		writeMu  sync.Mutex
	)
	defer s.wg.Done()
	defer func() {
		inflight.Wait()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			resp := s.dispatch(req)
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := enc.Encode(resp); err != nil {
				s.logger.Warn("rpc write failed", "method", req.Method, "error", err)
			}
		}()
	}
}

func (s *Server) dispatch(req Request) Response {
	s.mu.RLock()
	handler, exists := s.handlers[req.Method]
	s.mu.RUnlock()

	resp := Response{ID: req.ID}
	if !exists {
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		resp.Kind = "unknown_method"
		return resp
	}

	ctx := s.ctx
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	start := time.Now()
	data, err := s.invoke(ctx, req.Method, handler, req.Params)
	if err != nil {
		resp.Error = err.Error()
		resp.Kind = apperrors.Kind(err)
		s.logger.Warn("rpc failed", "method", req.Method, "kind", resp.Kind, "error", err)
		return resp
	}
	resp.Data = data
	s.logger.Debug("rpc completed", "method", req.Method, "latency", time.Since(start))
	return resp
}

// invoke turns a handler panic into an internal error for that request.
func (s *Server) invoke(ctx context.Context, method string, h HandlerFunc, params json.RawMessage) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("rpc handler panicked", "method", method, "panic", r)
			data, err = nil, fmt.Errorf("internal error in %s", method)
		}
	}()
	return h(ctx, params)
}

// MethodCount returns the number of registered methods.
func (s *Server) MethodCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Stop closes the listener and every open connection, cancels in-flight
// handlers and waits for them to return. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.logger.Info("rpc server stopped")
	})
}

// RemoteError is returned by Client.Call when the server reports a failure.
type RemoteError struct {
	Method  string
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc %s: %s", e.Method, e.Message)
}

// Unwrap maps the remote error class back onto the local sentinel so
// errors.Is works across the wire.
func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case "invalid_input":
		return apperrors.ErrInvalidInput
	case "index_not_ready":
		return apperrors.ErrIndexNotReady
	case "rebuild_in_progress":
		return apperrors.ErrRebuildInProgress
	case "rebuild_failed":
		return apperrors.ErrRebuildFailed
	case "timeout":
		return apperrors.ErrTimeout
	}
	return nil
}

// IsRemote reports whether err came back from the server rather than from
// the transport.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
