// Package formlog records form submissions in an append-only text file.
package formlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	TimeLayout = "2006-01-02 15:04:05"
	Separator  = "----------------------------------------"
)

type Field struct {
	Key   string
	Value string
}

type Entry struct {
	Time   time.Time
	Fields []Field
}

// ParseFields splits a "k=v&k=v" body into its fields, keeping their order.
// Tokens split on the first '='; a token without one has an empty value.
// Empty tokens are skipped. Nothing is URL-decoded.
func ParseFields(body string) []Field {
	if body == "" {
		return nil
	}
	tokens := strings.Split(body, "&")
	fields := make([]Field, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		key, value, _ := strings.Cut(tok, "=")
		// One line per field: a value stops at its first line break.
		value, _, _ = strings.Cut(value, "\n")
		fields = append(fields, Field{
			Key:   stripLineBreaks(key),
			Value: strings.TrimSuffix(value, "\r"),
		})
	}
	return fields
}

func stripLineBreaks(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// Format renders the entry as it appears in the log file.
func (e Entry) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date and Time: %s\n\n", e.Time.Format(TimeLayout))
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	b.WriteString(Separator)
	b.WriteString("\n")
	return b.String()
}

// Logger appends entries to a single file. Appends are serialized and each
// entry goes out in one write, so records never interleave.
type Logger struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

// Path is the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Record parses body and appends it as one entry stamped with the current
// local time.
func (l *Logger) Record(body string) (Entry, error) {
	e := Entry{Time: l.now(), Fields: ParseFields(body)}
	if err := l.Append(e); err != nil {
		return e, err
	}
	return e, nil
}

func (l *Logger) Append(e Entry) error {
	record := []byte(e.Format())

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open form log: %w", err)
	}
	if _, err := f.Write(record); err != nil {
		f.Close()
		return fmt.Errorf("append form log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close form log: %w", err)
	}
	return nil
}
