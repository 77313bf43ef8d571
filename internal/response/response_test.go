package response

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaitan80/webserver/internal/headers"
)

type failingWriter struct {
	limit int
	n     int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	room := f.limit - f.n
	if room >= len(p) {
		f.n += len(p)
		return len(p), nil
	}
	f.n += room
	return room, errors.New("broken pipe")
}

func TestStatusLines(t *testing.T) {
	tests := []struct {
		code StatusCode
		want string
	}{
		{StatusOK, "HTTP/1.1 200 OK\r\n"},
		{StatusNotFound, "HTTP/1.1 404 Not Found\r\n"},
		{StatusInternalServerError, "HTTP/1.1 500 Internal Server Error\r\n"},
		{StatusCode(418), "HTTP/1.1 418\r\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteStatusLine(&buf, tt.code))
		assert.Equal(t, tt.want, buf.String())
	}
}

func TestWriteHeadersOrder(t *testing.T) {
	h := GetDefaultHeaders(5)
	h.Set("X-Conn-Id", "abc")
	var buf bytes.Buffer
	require.NoError(t, WriteHeaders(&buf, h))
	assert.Equal(t, "Content-Length: 5\r\nConnection: close\r\nContent-Type: text/html\r\nX-Conn-Id: abc\r\n\r\n", buf.String())
}

func TestWriterFullResponse(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.False(t, w.WroteAnything())

	body := []byte("<p>hi</p>")
	require.NoError(t, w.WriteStatusLine(StatusOK))
	require.NoError(t, w.WriteHeaders(GetDefaultHeaders(len(body))))
	n, err := w.WriteBody(body)
	require.NoError(t, err)
	assert.Equal(t, len(body), n)

	want := "HTTP/1.1 200 OK\r\nContent-Length: 9\r\nConnection: close\r\nContent-Type: text/html\r\n\r\n<p>hi</p>"
	assert.Equal(t, want, buf.String())
	assert.True(t, w.WroteAnything())
	assert.Equal(t, StatusOK, w.Status())
	assert.Equal(t, len(want), w.Written())
	assert.NoError(t, w.Err())
}

func TestWriterEnforcesOrder(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	_, err := w.WriteBody([]byte("x"))
	assert.ErrorIs(t, err, ErrWriteOrder)
	assert.ErrorIs(t, w.WriteHeaders(headers.NewHeaders()), ErrWriteOrder)

	require.NoError(t, w.WriteStatusLine(StatusOK))
	assert.ErrorIs(t, w.WriteStatusLine(StatusOK), ErrWriteOrder)
}

func TestWriterRecordsShortWrite(t *testing.T) {
	fw := &failingWriter{limit: 20}
	w := NewWriter(fw)
	require.NoError(t, w.WriteStatusLine(StatusOK))
	err := w.WriteHeaders(GetDefaultHeaders(100))
	require.Error(t, err)
	assert.Equal(t, 20, w.Written())
	assert.EqualError(t, w.Err(), "broken pipe")
}

func TestWriteResponseDefaults(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteResponse(StatusOK, nil, nil))
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\nContent-Type: text/html\r\n\r\n", buf.String())
	assert.ErrorIs(t, w.WriteResponse(StatusOK, nil, nil), ErrWriteOrder)
}

func TestWriteResponseFillsMissingHeaders(t *testing.T) {
	h := headers.NewHeaders()
	h.Set("Content-Length", "42")
	h.Set("Content-Type", "text/plain")
	h.Set("X-Trace", "1")

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteResponse(StatusNotFound, h, []byte("nope")))
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 4\r\nConnection: close\r\nContent-Type: text/plain\r\nX-Trace: 1\r\n\r\nnope", buf.String())
}
