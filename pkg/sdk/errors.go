package ragchat

import "github.com/kailas-cloud/ragchat/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation             = domain.ErrValidation
	ErrNotFound               = domain.ErrNotFound
	ErrStorage                = domain.ErrStorage
	ErrParse                  = domain.ErrParse
	ErrVectorStore            = domain.ErrVectorStore
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// ErrorKind returns the machine-readable category of err, e.g. "parse_error".
func ErrorKind(err error) string { return string(domain.KindOf(err)) }
