// Package server accepts TCP connections and runs one handler per connection.
//
// Each connection carries one message in either dialect and is closed after
// the reply. A fault inside a handler is contained at the connection boundary.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/intentctl/internal/gateway"
	"github.com/rs/zerolog/log"
)

var ErrServerClosed = errors.New("server: closed")

// Metrics receives connection and request counts. The observability
// package provides the prometheus implementation.
type Metrics interface {
	ConnectionOpened(mode string)
	ConnectionActive(delta int)
	RequestHandled(mode, command, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened(string)               {}
func (noopMetrics) ConnectionActive(int)                  {}
func (noopMetrics) RequestHandled(string, string, string) {}

type Option func(*Server)

func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Server owns the listener, the tracked connections and the shared gateway.
type Server struct {
	cfg     Config
	gateway *gateway.Gateway
	metrics Metrics

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool

	wg     sync.WaitGroup
	active atomic.Int64
	served atomic.Uint64
}

func New(cfg Config, gw *gateway.Gateway, opts ...Option) *Server {
	if gw == nil {
		gw = gateway.New()
	}
	s := &Server{
		cfg:     cfg.WithDefaults(),
		gateway: gw,
		metrics: noopMetrics{},
		conns:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then closes live connections
// and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("intentd listening")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.shutdown()
				log.Info().Uint64("served", s.served.Load()).Msg("intentd stopped")
				return nil
			}
			delay = nextAcceptDelay(delay)
			log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			time.Sleep(delay)
			continue
		}
		delay = 0

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Addr reports the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections reports handlers currently running.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Served reports connections accepted since start.
func (s *Server) Served() uint64 {
	return s.served.Load()
}

func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway
}

func (s *Server) Trained() bool {
	return s.gateway.Trained()
}

func (s *Server) Generation() uint64 {
	return s.gateway.Generation()
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.served.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) shutdown() {
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	prev *= 2
	if prev > time.Second {
		return time.Second
	}
	return prev
}
