// Package registry persists the catalog of uploaded documents.
package registry

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
)

const lockRetry = 20 * time.Millisecond

// File is a registry stored as a single JSON array. Writes replace the file atomically.
// Upserts from other processes sharing the path (ragctl next to ragchat) are serialized
// through an advisory lock on {path}.lock.
type File struct {
	path   string
	logger *zap.Logger

	// mu serializes the read-modify-write cycle of Upsert within the process, lock across processes.
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFile creates the parent directory of path if needed. The file itself is created on first Upsert.
func NewFile(path string, logger *zap.Logger) (*File, error) {
	if path == "" {
		return nil, errors.New("registry path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create registry dir: %w", domain.ErrStorage, err)
	}
	return &File{path: path, logger: logger, lock: flock.New(path + ".lock")}, nil
}

// Upsert inserts rec or replaces the entry with the same document id.
func (f *File) Upsert(ctx context.Context, rec record.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("%w: lock registry: %w", domain.ErrStorage, err)
	}
	if !locked {
		return fmt.Errorf("%w: lock registry: not acquired", domain.ErrStorage)
	}
	defer func() {
		if err := f.lock.Unlock(); err != nil {
			f.logger.Warn("Failed to unlock registry", zap.String("path", f.path), zap.Error(err))
		}
	}()

	entries, corrupt := f.load()
	if corrupt {
		f.quarantine()
	}

	dto := toDTO(&rec)
	if i := slices.IndexFunc(entries, func(e recordDTO) bool { return e.DocumentID == dto.DocumentID }); i >= 0 {
		entries[i] = dto
	} else {
		entries = append(entries, dto)
	}
	sortRecent(entries)

	return f.save(entries)
}

// List returns all records, most recent first.
func (f *File) List(_ context.Context) ([]record.Record, error) {
	f.mu.Lock()
	entries, _ := f.load()
	f.mu.Unlock()

	out := make([]record.Record, len(entries))
	for i := range entries {
		out[i] = entries[i].toDomain()
	}
	return out, nil
}

// IDs returns every registered document id. Unlike List it fails on an unreadable file,
// so callers deleting data by absence never act on a registry that only looks empty.
func (f *File) IDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	entries, err := f.read()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].DocumentID
	}
	return ids, nil
}

// Get returns the record for id or domain.ErrNotFound.
func (f *File) Get(ctx context.Context, id string) (record.Record, error) {
	all, err := f.List(ctx)
	if err != nil {
		return record.Record{}, err
	}
	for i := range all {
		if all[i].ID() == id {
			return all[i], nil
		}
	}
	return record.Record{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

var errCorrupt = fmt.Errorf("%w: registry corrupt", domain.ErrStorage)

// read parses the backing file. A missing or empty file is an empty registry.
func (f *File) read() ([]recordDTO, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read registry: %w", domain.ErrStorage, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []recordDTO
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	sortRecent(entries)
	return entries, nil
}

// load is read with failures logged and treated as empty. The flag reports a corrupt file.
func (f *File) load() ([]recordDTO, bool) {
	entries, err := f.read()
	if err != nil {
		f.logger.Warn("Registry unreadable, treating as empty", zap.String("path", f.path), zap.Error(err))
		return nil, errors.Is(err, errCorrupt)
	}
	return entries, false
}

// quarantine keeps a corrupt registry next to the new one for manual recovery.
func (f *File) quarantine() {
	dst := f.path + ".corrupt"
	if err := os.Rename(f.path, dst); err != nil {
		f.logger.Warn("Failed to quarantine corrupt registry", zap.String("path", f.path), zap.Error(err))
		return
	}
	f.logger.Warn("Corrupt registry moved aside", zap.String("path", dst))
}

func (f *File) save(entries []recordDTO) error {
	if entries == nil {
		entries = []recordDTO{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp registry: %w", domain.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write registry: %w", domain.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync registry: %w", domain.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close registry: %w", domain.ErrStorage, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: replace registry: %w", domain.ErrStorage, err)
	}
	return nil
}

// sortRecent orders by uploaded_at descending, then by id for a stable listing.
func sortRecent(entries []recordDTO) {
	slices.SortStableFunc(entries, func(a, b recordDTO) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
}
