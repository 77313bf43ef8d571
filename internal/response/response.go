package response

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/xaitan80/webserver/internal/headers"
)

// StatusCode is a limited set of HTTP status codes we support.
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusBadRequest          StatusCode = 400
	StatusNotFound            StatusCode = 404
	StatusInternalServerError StatusCode = 500
)

// ContentTypeHTML is sent on every response regardless of what the body holds.
const ContentTypeHTML = "text/html"

var ErrWriteOrder = errors.New("response: write out of order")

// Reason returns the reason phrase for code, or "" if unknown.
func (code StatusCode) Reason() string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}

// WriteStatusLine writes the HTTP/1.1 status line for the given status code.
func WriteStatusLine(w io.Writer, statusCode StatusCode) error {
	reason := statusCode.Reason()
	if reason == "" {
		_, err := fmt.Fprintf(w, "HTTP/1.1 %d\r\n", int(statusCode))
		return err
	}
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", int(statusCode), reason)
	return err
}

// GetDefaultHeaders returns the default headers for our responses.
func GetDefaultHeaders(contentLen int) headers.Headers {
	h := headers.NewHeaders()
	h.Set("Content-Length", strconv.Itoa(contentLen))
	h.Set("Connection", "close")
	h.Set("Content-Type", ContentTypeHTML)
	return h
}

// leadingHeaders are written first, in this order, when present.
var leadingHeaders = []string{"content-length", "connection", "content-type"}

// headerOrder lists the keys of h: leadingHeaders first, then the rest by
// name.
func headerOrder(h headers.Headers) []string {
	keys := make([]string, 0, len(h))
	for _, k := range leadingHeaders {
		if _, ok := h[k]; ok {
			keys = append(keys, k)
		}
	}
	rest := make([]string, 0, len(h))
	for k := range h {
		if !slices.Contains(leadingHeaders, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// WriteHeaders writes the header block, blank line included, in one write.
func WriteHeaders(w io.Writer, h headers.Headers) error {
	var b strings.Builder
	for _, k := range headerOrder(h) {
		b.WriteString(headers.Canonical(k))
		b.WriteString(": ")
		b.WriteString(h[k])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

type writerState int

const (
	stateStatusLine writerState = iota
	stateHeaders
	stateBody
)

// Writer writes one response in order: status line, headers, body. It
// remembers the first write error and how many bytes reached the
// underlying writer.
type Writer struct {
	w       io.Writer
	state   writerState
	status  StatusCode
	written int
	err     error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.written += n
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

func (w *Writer) WriteStatusLine(statusCode StatusCode) error {
	if w.state != stateStatusLine {
		return ErrWriteOrder
	}
	w.state = stateHeaders
	w.status = statusCode
	return WriteStatusLine(w, statusCode)
}

func (w *Writer) WriteHeaders(h headers.Headers) error {
	if w.state != stateHeaders {
		return ErrWriteOrder
	}
	w.state = stateBody
	return WriteHeaders(w, h)
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	if w.state != stateBody {
		return 0, ErrWriteOrder
	}
	return w.Write(p)
}

// WriteResponse writes a whole response carrying body. Content-Length is
// always set from body; Connection and Content-Type default to "close" and
// text/html when h lacks them. h may be nil.
func (w *Writer) WriteResponse(status StatusCode, h headers.Headers, body []byte) error {
	if h == nil {
		h = GetDefaultHeaders(len(body))
	} else {
		h.Set("Content-Length", strconv.Itoa(len(body)))
		for k, v := range GetDefaultHeaders(0) {
			if !h.Has(k) {
				h.Set(k, v)
			}
		}
	}
	if err := w.WriteStatusLine(status); err != nil {
		return err
	}
	if err := w.WriteHeaders(h); err != nil {
		return err
	}
	if _, err := w.WriteBody(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// WroteAnything reports whether the status line has been started.
func (w *Writer) WroteAnything() bool {
	return w.state != stateStatusLine
}

// Status is the status code written, or 0 if none yet.
func (w *Writer) Status() StatusCode {
	return w.status
}

// Written is the number of bytes accepted by the underlying writer.
func (w *Writer) Written() int {
	return w.written
}

// Err is the first error returned by the underlying writer.
func (w *Writer) Err() error {
	return w.err
}
