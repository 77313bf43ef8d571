package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/xaitan80/webserver/internal/logger"
	"github.com/xaitan80/webserver/internal/request"
	"github.com/xaitan80/webserver/internal/response"
)

// acceptRetryDelay keeps a persistent accept error (e.g. EMFILE) from
// spinning the loop.
const acceptRetryDelay = 10 * time.Millisecond

const (
	// lingerTimeout and maxLingerBytes bound how long and how much unread
	// input is discarded after the response before the socket closes.
	lingerTimeout  = 500 * time.Millisecond
	maxLingerBytes = 256 << 10
)

// listen accepts connections until the listener is closed, handling each in
// its own tracked goroutine.
func (s *Server) listen(ln net.Listener, h Handler, cfg Config) {
	defer s.acceptor.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("Failed to accept connection", "error", err)
			time.Sleep(acceptRetryDelay)
			continue
		}
		s.track(conn)
		go s.handle(conn, h, cfg)
	}
}

func (s *Server) track(conn net.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
	s.handlers.Add(1)
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
	s.handlers.Done()
}

// handle reads one request, runs the handler, writes one response and
// closes the connection.
func (s *Server) handle(conn net.Conn, h Handler, cfg Config) {
	defer s.untrack(conn)
	defer conn.Close()

	log := logger.With("conn_id", uuid.NewString(), "remote_addr", conn.RemoteAddr().String())
	defer func() {
		if v := recover(); v != nil {
			log.Error("Handler panicked", "panic", v, "stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	_ = conn.SetReadDeadline(start.Add(cfg.ReadTimeout))
	r, err := request.FromReader(conn)
	if err != nil {
		// Nothing is sent back for unreadable or malformed requests.
		if errors.Is(err, request.ErrEmptyRequest) {
			log.Debug("Connection closed without a request")
		} else {
			log.Warn("Rejected request", "error", err)
			lingerClose(conn)
		}
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	rw := response.NewWriter(conn)
	if h != nil {
		if herr := h(r, rw); herr != nil && !rw.WroteAnything() {
			_ = rw.WriteResponse(herr.Status, herr.Headers, herr.Body)
		}
	}
	if !rw.WroteAnything() {
		_ = rw.WriteResponse(response.StatusOK, nil, nil)
	}

	logRequest(log, r, rw, time.Since(start))
	lingerClose(conn)
}

// lingerClose half-closes conn and discards input the single read left
// behind. Closing with unread data queued makes the kernel answer with a
// reset, which can destroy the response before the client reads it.
func lingerClose(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.CopyN(io.Discard, conn, maxLingerBytes)
}

func logRequest(log *slog.Logger, r *request.Request, rw *response.Writer, elapsed time.Duration) {
	attrs := []any{
		"method", r.RequestLine.Method,
		"target", r.RequestLine.RequestTarget,
		"status", int(rw.Status()),
		"bytes", rw.Written(),
		"duration", elapsed,
	}
	if err := rw.Err(); err != nil {
		log.Error("Failed to send response", append(attrs, "error", err)...)
		return
	}
	log.Info("Handled request", attrs...)
}
