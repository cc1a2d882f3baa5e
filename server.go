// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server accepts bridge connections and dispatches each request to the
// handler registered for its operation type. Every connection is served on
// its own goroutine, strictly one request at a time.
type Server struct {
	listener Listener
	registry *Registry
	log      *zap.Logger

	mu      sync.Mutex
	conns   map[*serverConn]struct{}
	serving bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup

	accepted       atomic.Int64
	requests       atomic.Int64
	failures       atomic.Int64
	protocolErrors atomic.Int64
}

type serverConn struct {
	wc     *wireConn
	remote string
	busy   bool
	once   sync.Once
}

func (c *serverConn) close() {
	c.once.Do(func() { _ = c.wc.Close() })
}

// Stats is a snapshot of server counters.
type Stats struct {
	ActiveConnections   int   `json:"activeConnections"`
	AcceptedConnections int64 `json:"acceptedConnections"`
	Requests            int64 `json:"requests"`
	Failures            int64 `json:"failures"`
	ProtocolErrors      int64 `json:"protocolErrors"`
}

func newServer(l Listener, o *serverOptions) *Server {
	return &Server{
		listener: l,
		registry: NewRegistry(),
		log:      o.log,
		conns:    make(map[*serverConn]struct{}),
		done:     make(chan struct{}),
	}
}

// AddOperationHandler registers h. A second handler for the same operation
// type is rejected with ErrDuplicateHandler.
func (s *Server) AddOperationHandler(h Handler) error {
	if err := s.registry.Add(h); err != nil {
		return err
	}
	s.log.Debug("registered operation handler", zap.Stringer("op", h.Type()))
	return nil
}

// Operations returns the registered operation types.
func (s *Server) Operations() []OperationType {
	return s.registry.Types()
}

// Addr returns the listener address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	active := len(s.conns)
	s.mu.Unlock()
	return Stats{
		ActiveConnections:   active,
		AcceptedConnections: s.accepted.Load(),
		Requests:            s.requests.Load(),
		Failures:            s.failures.Load(),
		ProtocolErrors:      s.protocolErrors.Load(),
	}
}

// Serve accepts connections until ctx is done or the server is closed. It
// returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrServerClosed
	case s.serving:
		s.mu.Unlock()
		return fmt.Errorf("%w: server already serving", ErrIllegalState)
	}
	s.serving = true
	s.mu.Unlock()

	s.log.Info("bridge server listening", zap.String("addr", s.Addr()))

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	var backoff time.Duration
	for {
		rwc, err := s.listener.Accept(ctx)
		if err != nil {
			if s.isClosed() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.log.Warn("accept failed", zap.Error(err), zap.Duration("retry", backoff))
			select {
			case <-time.After(backoff):
			case <-s.done:
				return nil
			}
			continue
		}
		backoff = 0

		sc := &serverConn{wc: newWireConn(rwc), remote: remoteAddr(rwc)}
		if !s.track(sc) {
			sc.close()
			return nil
		}
		s.accepted.Add(1)
		s.log.Debug("connection accepted", zap.String("remote", sc.remote))
		go s.serveConn(ctx, sc)
	}
}

func (s *Server) serveConn(ctx context.Context, sc *serverConn) {
	defer s.wg.Done()
	defer s.untrack(sc)

	for {
		op, body, err := sc.wc.readRequest()
		if err != nil {
			switch {
			case errors.Is(err, ErrProtocol):
				s.protocolErrors.Add(1)
				s.log.Warn("malformed request", zap.String("remote", sc.remote), zap.Error(err))
				_ = sc.wc.writeErr(toStatus(err, reasonMalformedRequest))
			case errors.Is(err, io.EOF):
				s.log.Debug("connection closed by peer", zap.String("remote", sc.remote))
			default:
				if !s.isClosed() {
					s.log.Debug("connection read failed", zap.String("remote", sc.remote), zap.Error(err))
				}
			}
			return
		}
		if !s.begin(sc) {
			return
		}
		keep := s.dispatch(ctx, sc, op, body)
		if !s.end(sc) || !keep {
			return
		}
	}
}

// dispatch runs one request to completion, including the write-back. It
// reports whether the connection may carry further requests.
func (s *Server) dispatch(ctx context.Context, sc *serverConn, op OperationType, body []byte) bool {
	s.requests.Add(1)

	h, ok := s.registry.Lookup(op)
	if !ok {
		s.protocolErrors.Add(1)
		err := unknownOperation(op, s.registry.Types())
		s.log.Warn("unknown operation", zap.String("remote", sc.remote), zap.Stringer("op", op))
		_ = sc.wc.writeErr(toStatus(err, reasonUnknownOperation))
		return false
	}

	var resp Encoder
	req := NewDecoder(body)
	reason, err := s.invoke(ctx, h, req, &resp)
	if err != nil {
		s.failures.Add(1)
		keep := true
		// Only an undecodable body is a protocol error; a delegate error
		// wrapping ErrProtocol is a domain error.
		if req.Err() != nil {
			s.protocolErrors.Add(1)
			reason = reasonMalformedRequest
			keep = false
		}
		s.log.Debug("operation failed", zap.Stringer("op", op), zap.String("reason", reason), zap.Error(err))
		if werr := sc.wc.writeErr(toStatus(err, reason)); werr != nil {
			s.log.Debug("write error response", zap.Stringer("op", op), zap.Error(werr))
			return false
		}
		return keep
	}
	if err := sc.wc.writeOK(resp.Bytes()); err != nil {
		s.log.Debug("write response", zap.Stringer("op", op), zap.Error(err))
		return false
	}
	return true
}

// invoke calls the handler, converting a panic into a marshalled failure.
func (s *Server) invoke(ctx context.Context, h Handler, req *Decoder, resp *Encoder) (reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("operation handler panicked", zap.Stringer("op", h.Type()), zap.Any("panic", r))
			err = status.Errorf(codes.Internal, "handler panic: %v", r)
			reason = reasonHandlerPanic
		}
	}()
	return "", h.Handle(ctx, req, resp)
}

func unknownOperation(op OperationType, known []OperationType) error {
	names := make([]string, len(known))
	for i, t := range known {
		names[i] = string(t)
	}
	if matches := fuzzy.Find(string(op), names); len(matches) > 0 {
		return fmt.Errorf("%w: unknown operation %q (did you mean %q?)", ErrProtocol, op, matches[0].Str)
	}
	return fmt.Errorf("%w: unknown operation %q", ErrProtocol, op)
}

func (s *Server) track(sc *serverConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[sc] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(sc *serverConn) {
	s.mu.Lock()
	delete(s.conns, sc)
	s.mu.Unlock()
	sc.close()
}

func (s *Server) begin(sc *serverConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	sc.busy = true
	return true
}

func (s *Server) end(sc *serverConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.busy = false
	return !s.closed
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Shutdown stops accepting connections, closes idle ones and waits for
// in-flight calls to write their responses. If ctx ends first the remaining
// connections are closed and ctx.Err is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	var lerr error
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
		for sc := range s.conns {
			if !sc.busy {
				sc.close()
			}
		}
		lerr = s.listener.Close()
		s.log.Info("bridge server stopping", zap.String("addr", s.Addr()))
	}
	s.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		if errors.Is(lerr, net.ErrClosed) {
			lerr = nil
		}
		return lerr
	case <-ctx.Done():
		s.mu.Lock()
		for sc := range s.conns {
			sc.close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Close shuts the server down, waiting for in-flight calls.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}

func remoteAddr(rwc io.ReadWriteCloser) string {
	if c, ok := rwc.(interface{ RemoteAddr() net.Addr }); ok {
		return c.RemoteAddr().String()
	}
	return ""
}
