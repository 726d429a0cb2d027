// Package upload keeps raw uploaded bytes on local disk.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = fmt.Errorf("%w: file exceeds size limit", domain.ErrValidation)

// Store writes uploads as {dir}/{document_id}{ext}.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates dir if needed. maxBytes <= 0 disables the size limit.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create upload dir: %w", domain.ErrStorage, err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Path returns where the upload for documentID with extension ext is stored.
// ext keeps the case of the original filename.
func (s *Store) Path(documentID, ext string) string {
	return filepath.Join(s.dir, documentID+ext)
}

// Save streams r to the final path via a temp file and rename, so readers never see a partial file.
func (s *Store) Save(ctx context.Context, documentID, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := s.Path(documentID, ext)

	tmp, err := os.CreateTemp(s.dir, ".upload-*.part")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", domain.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write upload: %w", domain.ErrStorage, err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		tmp.Close()
		return "", ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close upload: %w", domain.ErrStorage, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("%w: store upload: %w", domain.ErrStorage, err)
	}
	return dst, nil
}

// Stat returns the size of a stored upload.
func (s *Store) Stat(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat upload: %w", domain.ErrStorage, err)
	}
	return fi.Size(), nil
}

// Remove deletes a stored upload. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove upload: %w", domain.ErrStorage, err)
	}
	return nil
}
