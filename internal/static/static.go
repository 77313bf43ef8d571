// Package static resolves request paths against a document root and reads
// the files found there.
package static

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrOutsideRoot = errors.New("path escapes document root")
)

type FileServer struct {
	root string
	// hidden files are never served even when they sit under root.
	hidden []string
}

// New returns a FileServer rooted at root. The root is made absolute but
// not checked for existence; a missing root just means every lookup fails.
func New(root string) (*FileServer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve document root %q: %w", root, err)
	}
	return &FileServer{root: abs}, nil
}

// Root is the absolute document root.
func (fs *FileServer) Root() string {
	return fs.root
}

// Hide makes Read report ErrNotFound for the given files, matched by
// identity so other spellings or links to them are refused too.
func (fs *FileServer) Hide(paths ...string) {
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		fs.hidden = append(fs.hidden, p)
	}
}

func (fs *FileServer) isHidden(info os.FileInfo) bool {
	for _, p := range fs.hidden {
		if hi, err := os.Stat(p); err == nil && os.SameFile(info, hi) {
			return true
		}
	}
	return false
}

// Resolve maps a request path (no leading '/') to a file path under the
// root. Parent segments that would climb above the root are rejected.
func (fs *FileServer) Resolve(p string) (string, error) {
	full := filepath.Join(fs.root, filepath.FromSlash(p))
	if !within(fs.root, full) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, p)
	}
	return full, nil
}

// Read returns the whole content of the file at request path p.
func (fs *FileServer) Read(p string) ([]byte, error) {
	full, err := fs.Resolve(p)
	if err != nil {
		return nil, err
	}

	// A symlink inside the root may still point outside it.
	target, err := filepath.EvalSymlinks(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	realRoot, err := filepath.EvalSymlinks(fs.root)
	if err != nil {
		realRoot = fs.root
	}
	if !within(realRoot, target) {
		return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, p)
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() || fs.isHidden(info) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, p, err)
	}
	return data, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
