// Package storage holds uploaded images on disk for the duration of one request.
package storage

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/medflow/idscan/pkg/errors"
)

// TempStore writes uploads to private temp files under a directory.
// Files live only until the request that created them removes them.
type TempStore struct {
	dir     string
	maxSize int64
}

// NewTempStore creates a store under dir (os.TempDir when empty) with a byte limit per file
func NewTempStore(dir string, maxSize int64) (*TempStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &TempStore{dir: dir, maxSize: maxSize}, nil
}

// MaxSize returns the per-file byte limit
func (s *TempStore) MaxSize() int64 {
	return s.maxSize
}

// TempFile is one stored upload
type TempFile struct {
	Path string
	Size int64
}

// Save streams r into a new temp file. If more than MaxSize bytes arrive the
// partial file is removed and FILE_TOO_LARGE is returned.
func (s *TempStore) Save(r io.Reader, originalName string) (*TempFile, error) {
	f, err := os.CreateTemp(s.dir, "idscan-*"+safeExt(originalName))
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("create temp file: %w", err))
	}

	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()

	if err != nil {
		os.Remove(f.Name())
		if tooLarge(err) {
			return nil, FileTooLarge(s.maxSize)
		}
		return nil, errors.NewWithKey("BAD_REQUEST", "upload.invalid_form", http.StatusBadRequest).WithCause(err)
	}
	if closeErr != nil {
		os.Remove(f.Name())
		return nil, errors.Internal(fmt.Errorf("close temp file: %w", closeErr))
	}
	if written > s.maxSize {
		os.Remove(f.Name())
		return nil, FileTooLarge(s.maxSize)
	}

	return &TempFile{Path: f.Name(), Size: written}, nil
}

// Remove deletes stored files, ignoring ones that are already gone
func Remove(paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ZeroBytes overwrites a byte slice with zeros so image data does not linger in memory
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// FileTooLarge is the 400 returned for uploads over the limit
func FileTooLarge(maxSize int64) *errors.AppError {
	return errors.NewWithKey("FILE_TOO_LARGE", "upload.file_too_large", http.StatusBadRequest,
		map[string]string{"max": fmt.Sprintf("%d", maxSize)})
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// safeExt keeps a short alphanumeric extension from the client's file name
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
