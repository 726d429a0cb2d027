package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed request rejected before any pipeline stage.
	ErrValidation = errors.New("validation failed")
	// ErrStorage signals a disk or file I/O failure.
	ErrStorage = errors.New("storage failure")
	// ErrParse signals that a document could not be interpreted by its loader.
	ErrParse = errors.New("document could not be parsed")
	// ErrVectorStore signals an embedder or vector index failure.
	ErrVectorStore = errors.New("vector store failure")
	// ErrEmbedding is the cause of a VectorStoreError raised while embedding.
	ErrEmbedding = errors.New("embedding failed")
	// ErrIndex is the cause of a VectorStoreError raised by the index backend.
	ErrIndex = errors.New("vector index failed")
	// ErrEmbeddingProviderError signals an upstream embedding API failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals that the configured token budget is spent.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// VectorStoreError is returned by every vector store operation that fails.
// It matches ErrVectorStore and unwraps to ErrEmbedding or ErrIndex.
type VectorStoreError struct {
	Op  string
	Err error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrVectorStore.Error(), e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrVectorStore) hold for any VectorStoreError.
func (e *VectorStoreError) Is(target error) bool { return target == ErrVectorStore }

// NewEmbeddingError wraps an embedder failure.
func NewEmbeddingError(op string, err error) error {
	return &VectorStoreError{Op: op, Err: fmt.Errorf("%w: %w", ErrEmbedding, err)}
}

// NewIndexError wraps an index backend failure.
func NewIndexError(op string, err error) error {
	return &VectorStoreError{Op: op, Err: fmt.Errorf("%w: %w", ErrIndex, err)}
}

// Kind is the machine-readable error category exposed to clients.
type Kind string

// Error kinds.
const (
	KindValidation  Kind = "validation_error"
	KindStorage     Kind = "storage_error"
	KindParse       Kind = "parse_error"
	KindVectorStore Kind = "vector_store_error"
	KindNotFound    Kind = "not_found"
	KindQuota       Kind = "quota_exceeded"
	KindInternal    Kind = "internal_error"
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrValidation, KindValidation},
	{ErrEmbeddingQuotaExceeded, KindQuota},
	{ErrParse, KindParse},
	{ErrVectorStore, KindVectorStore},
	{ErrStorage, KindStorage},
	{ErrNotFound, KindNotFound},
}

// KindOf classifies err by the first matching sentinel.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// SafeMessage returns the sentinel text for err so that wrapped internals never reach clients.
func SafeMessage(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.sentinel.Error()
		}
	}
	return "internal error"
}
