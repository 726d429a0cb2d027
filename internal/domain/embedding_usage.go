package domain

import (
	"context"
	"sync/atomic"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single HTTP request.
// The handler puts it into the context; services add to it after embedding,
// possibly from several goroutines; the handler reads it for response headers.
type EmbeddingUsage struct {
	tokens atomic.Int64
	used   atomic.Bool // set even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u != nil {
		u.tokens.Add(int64(n))
		u.used.Store(true)
	}
}

// TotalTokens returns the tokens recorded so far.
func (u *EmbeddingUsage) TotalTokens() int64 {
	if u == nil {
		return 0
	}
	return u.tokens.Load()
}

// Used reports whether any embedding call was made.
func (u *EmbeddingUsage) Used() bool {
	return u != nil && u.used.Load()
}
