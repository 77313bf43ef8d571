package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xaitan80/webserver/internal/headers"
)

// MaxRequestSize is the most a single request may occupy. Anything beyond it
// is never read.
const MaxRequestSize = 4096

var (
	ErrEmptyRequest         = errors.New("empty request")
	ErrMissingBodyDelimiter = errors.New("malformed request: missing blank line before body")
)

var bodyDelimiter = []byte("\r\n\r\n")

const methodWithBody = "POST"

type Request struct {
	RequestLine RequestLine
	// Path is the request target with exactly one leading '/' removed.
	Path    string
	Headers headers.Headers
	Body    string
	HasBody bool
}

type RequestLine struct {
	Protocol      string
	RequestTarget string
	Method        string
}

// FromReader performs a single read of at most MaxRequestSize bytes from
// reader and parses the result. A request longer than the buffer is
// truncated, not rejected.
func FromReader(reader io.Reader) (*Request, error) {
	buf := make([]byte, MaxRequestSize)
	n, err := reader.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, ErrEmptyRequest
		}
		return nil, fmt.Errorf("read request: %w", err)
	}
	return Parse(buf[:n])
}

// Parse builds a Request from raw bytes. Only POST requests can fail: they
// must contain the blank line that separates headers from the body.
func Parse(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, ErrEmptyRequest
	}

	lineEnd := bytes.IndexByte(data, '\n')
	line := data
	rest := []byte(nil)
	if lineEnd >= 0 {
		line = data[:lineEnd]
		rest = data[lineEnd+1:]
	}
	rl := parseRequestLine(string(bytes.TrimSuffix(line, []byte{'\r'})))

	r := &Request{
		RequestLine: rl,
		Path:        strings.TrimPrefix(rl.RequestTarget, "/"),
		Headers:     headers.NewHeaders(),
	}

	delim := bytes.Index(data, bodyDelimiter)
	if rl.Method == methodWithBody {
		if delim == -1 {
			return nil, ErrMissingBodyDelimiter
		}
		r.Body = string(data[delim+len(bodyDelimiter):])
		r.HasBody = true
	}

	if rest != nil {
		r.parseHeaders(rest)
	}
	return r, nil
}

// parseRequestLine splits the first line on whitespace. Missing parts are
// left empty.
func parseRequestLine(line string) RequestLine {
	parts := strings.Fields(line)
	var rl RequestLine
	if len(parts) > 0 {
		rl.Method = parts[0]
	}
	if len(parts) > 1 {
		rl.RequestTarget = parts[1]
	}
	if len(parts) > 2 {
		rl.Protocol = parts[2]
	}
	return rl
}

// parseHeaders reads header lines until the first blank line, skipping any
// that do not parse.
func (r *Request) parseHeaders(data []byte) {
	for len(data) > 0 {
		n, done, _ := r.Headers.Parse(data)
		if n == 0 || done {
			return
		}
		data = data[n:]
	}
}
