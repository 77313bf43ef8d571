package headers

import (
	"bytes"
	"errors"
	"net/textproto"
	"strings"
)

var (
	ErrMissingColon     = errors.New("invalid header: missing colon")
	ErrSpaceBeforeColon = errors.New("invalid header: space before colon")
	ErrEmptyKey         = errors.New("invalid header: empty key")
	ErrInvalidKey       = errors.New("invalid header: invalid character in key")
)

var crlf = []byte("\r\n")

// Headers maps lowercased field names to their values. Repeated fields are
// joined with commas.
type Headers map[string]string

// NewHeaders creates an empty Headers map.
func NewHeaders() Headers {
	return make(Headers)
}

// Get returns the value for key, matched case-insensitively.
func (h Headers) Get(key string) string {
	return h[strings.ToLower(key)]
}

// Has reports whether key is present.
func (h Headers) Has(key string) bool {
	_, ok := h[strings.ToLower(key)]
	return ok
}

// Set replaces any existing value for key.
func (h Headers) Set(key, value string) {
	h[strings.ToLower(key)] = value
}

// Add appends value to key, comma-separated if key is already present.
func (h Headers) Add(key, value string) {
	key = strings.ToLower(key)
	if prev, ok := h[key]; ok {
		h[key] = prev + "," + value
		return
	}
	h[key] = value
}

// Canonical returns key in canonical MIME form, e.g. "content-length" ->
// "Content-Length".
func Canonical(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}

// Parse consumes at most one header line from data and updates the map.
// It returns n (bytes consumed), done (true iff an empty line was found), and err.
//   - If no CRLF is found, returns (0, false, nil) and consumes nothing.
//   - If CRLF is at the start, returns (2, true, nil): end of headers.
//   - Otherwise parses a single "key: value" line. Whitespace around key and
//     value is trimmed, but none may sit immediately before the colon.
//
// On error n is the length of the offending line including its CRLF, so a
// lenient caller can skip it and continue.
func (h Headers) Parse(data []byte) (n int, done bool, err error) {
	idx := bytes.Index(data, crlf)
	if idx == -1 {
		return 0, false, nil
	}
	if idx == 0 {
		return 2, true, nil
	}
	n = idx + 2

	line := data[:idx]
	// Values can contain ':' so only the first one separates.
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return n, false, ErrMissingColon
	}
	if colon > 0 {
		prev := line[colon-1]
		if prev == ' ' || prev == '\t' {
			return n, false, ErrSpaceBeforeColon
		}
	}

	key := strings.TrimSpace(string(line[:colon]))
	val := strings.TrimSpace(string(line[colon+1:]))
	if key == "" {
		return n, false, ErrEmptyKey
	}
	for i := 0; i < len(key); i++ {
		if !isTokenChar(key[i]) {
			return n, false, ErrInvalidKey
		}
	}

	h.Add(key, val)
	return n, false, nil
}

func isTokenChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-'
}
