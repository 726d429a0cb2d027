// Package hashemb is an offline embedder that maps text to a vector by feature hashing.
// It needs no network and is deterministic, which makes it the default for local runs and tests.
package hashemb

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Embedder hashes word unigrams and bigrams into a fixed number of buckets.
type Embedder struct {
	dim int
}

// New creates a hashing embedder producing dim-length vectors.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = 256
	}
	return &Embedder{dim: dim}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return e.dim }

// Embed implements domain.Embedder. Token usage is reported as the number of terms.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // context error
	}
	vec, n := e.vector(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: n, TotalTokens: n}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, err //nolint:wrapcheck // context error
		}
		vec, n := e.vector(t)
		out.Embeddings[i] = vec
		out.PromptTokens += n
		out.TotalTokens += n
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vector(text string) ([]float32, int) {
	vec := make([]float32, e.dim)
	terms := tokenize(text)
	for i, t := range terms {
		e.add(vec, t, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+t, 0.5)
		}
	}
	normalize(vec)
	return vec, len(terms)
}

func (e *Embedder) add(vec []float32, term string, weight float32) {
	h := xxhash.Sum64String(term)
	idx := int(h % uint64(e.dim))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize lowercases and splits on non-alphanumerics. Han, Hiragana, Katakana and Hangul
// runes become single-rune terms since those scripts do not separate words with spaces.
func tokenize(text string) []string {
	var terms []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			terms = append(terms, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
			flush()
			terms = append(terms, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
