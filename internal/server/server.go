package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/xaitan80/webserver/internal/headers"
	"github.com/xaitan80/webserver/internal/logger"
	"github.com/xaitan80/webserver/internal/request"
	"github.com/xaitan80/webserver/internal/response"
)

const (
	DefaultPort         = 8080
	DefaultDocumentRoot = "www"

	defaultPortAttempts = 10
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultGracePeriod  = 3 * time.Second
)

var (
	ErrNotRunning      = errors.New("server is not running")
	ErrNoPortAvailable = errors.New("no port available")
)

type Config struct {
	Host         string
	Port         int
	DocumentRoot string
	// PortAttempts bounds how many consecutive ports Start tries, beginning
	// at Port.
	PortAttempts int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// GracePeriod is how long Stop waits for in-flight connections before
	// closing them.
	GracePeriod time.Duration
}

// Handler is the function signature used to handle requests.
type Handler func(r *request.Request, w *response.Writer) *HandlerError

// HandlerFactory builds the Handler serving a document root. Start calls it
// each time the server comes up.
type HandlerFactory func(documentRoot string) (Handler, error)

// HandlerError represents an error returned from a Handler.
type HandlerError struct {
	Status  response.StatusCode
	Headers headers.Headers
	Body    []byte
}

type Server struct {
	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu      sync.Mutex
	cfg     Config
	factory HandlerFactory
	ln      net.Listener
	running bool
	done    chan struct{}

	acceptor sync.WaitGroup
	handlers sync.WaitGroup
	connMu   sync.Mutex
	conns    map[net.Conn]struct{}
}

// New returns a stopped server. Zero fields of cfg take their defaults,
// except Port: 0 asks for an ephemeral port.
func New(cfg Config, factory HandlerFactory) *Server {
	if cfg.DocumentRoot == "" {
		cfg.DocumentRoot = DefaultDocumentRoot
	}
	if cfg.PortAttempts <= 0 {
		cfg.PortAttempts = defaultPortAttempts
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	return &Server{
		cfg:     cfg,
		factory: factory,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve starts a server on the given port with h and default settings.
func Serve(port int, h Handler) (*Server, error) {
	s := New(Config{Port: port}, func(string) (Handler, error) { return h, nil })
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close stops the server. Closing a stopped or nil server is a no-op.
func (s *Server) Close() error {
	if s == nil || !s.Running() {
		return nil
	}
	return s.Stop()
}

// SetPort changes the port used by the next Start.
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		logger.Warn("Ignoring port change while running", "port", port)
		return
	}
	s.cfg.Port = port
}

// SetDocumentRoot changes the document root used by the next Start.
func (s *Server) SetDocumentRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		logger.Warn("Ignoring document root change while running", "document_root", root)
		return
	}
	s.cfg.DocumentRoot = root
}

// Config returns the current configuration.
func (s *Server) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr is the bound address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port is the bound TCP port, or 0 when stopped.
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Start binds the listener and begins accepting connections in the
// background. Starting a running server does nothing.
func (s *Server) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.running {
		addr := s.ln.Addr().String()
		s.mu.Unlock()
		logger.Warn("Server is already running", "addr", addr)
		return nil
	}
	cfg := s.cfg
	s.mu.Unlock()

	var h Handler
	if s.factory != nil {
		var err error
		h, err = s.factory(cfg.DocumentRoot)
		if err != nil {
			return fmt.Errorf("build handler: %w", err)
		}
	}

	ln, err := bind(cfg)
	if err != nil {
		logger.Error("Failed to start server", "error", err)
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.acceptor.Add(1)
	go s.listen(ln, h, cfg)

	logger.Info("Server started", "addr", ln.Addr().String(), "document_root", cfg.DocumentRoot)
	return nil
}

// bind listens on the first free port in [Port, Port+PortAttempts).
func bind(cfg Config) (net.Listener, error) {
	attempts := cfg.PortAttempts
	if cfg.Port == 0 {
		attempts = 1
	}
	var lastErr error
	last := cfg.Port
	for i := 0; i < attempts; i++ {
		port := cfg.Port + i
		if port > 65535 {
			break
		}
		last = port
		ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))
		if err == nil {
			if i > 0 {
				logger.Warn("Bound to fallback port", "requested", cfg.Port, "port", port)
			}
			return ln, nil
		}
		logger.Debug("Bind failed", "port", port, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("port %d out of range", cfg.Port)
	}
	return nil, fmt.Errorf("%w in %d-%d: %w", ErrNoPortAvailable, cfg.Port, last, lastErr)
}

// Stop closes the listener, drains in-flight connections and releases
// WaitForShutdown callers.
func (s *Server) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		logger.Warn("Server is not running")
		return ErrNotRunning
	}
	ln, done, grace := s.ln, s.done, s.cfg.GracePeriod
	s.running = false
	s.ln = nil
	s.mu.Unlock()

	err := ln.Close()
	s.acceptor.Wait()
	s.drain(grace)
	close(done)

	logger.Info("Server stopped", "addr", ln.Addr().String())
	if err != nil {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

// WaitForShutdown blocks until Stop completes. It returns at once if the
// server is not running.
func (s *Server) WaitForShutdown() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

// drain waits for tracked handlers, force-closing their connections once
// grace has passed.
func (s *Server) drain(grace time.Duration) {
	idle := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(idle)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-idle:
		return
	case <-timer.C:
	}

	s.connMu.Lock()
	n := len(s.conns)
	for c := range s.conns {
		_ = c.Close()
	}
	s.connMu.Unlock()
	logger.Warn("Grace period exceeded, closed connections in progress", "count", n)
	<-idle
}
