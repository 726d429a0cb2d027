package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// DefaultMaxAPIBatchSize caps the number of texts sent in one provider call.
const DefaultMaxAPIBatchSize = 256

// BudgetChecker is the budget surface the embedder needs.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedEmbedder adds budget enforcement, sub-batching and logging.
// Request metrics are recorded by the transport embedders.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	budget    BudgetChecker
	batchSize int
	logger    *zap.Logger
}

// Option configures an InstrumentedEmbedder.
type Option func(*InstrumentedEmbedder)

// WithBudget enables token budget enforcement.
func WithBudget(b BudgetChecker) Option {
	return func(p *InstrumentedEmbedder) { p.budget = b }
}

// WithMaxBatchSize overrides DefaultMaxAPIBatchSize.
func WithMaxBatchSize(n int) Option {
	return func(p *InstrumentedEmbedder) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewInstrumentedEmbedder wraps inner.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger, opts ...Option,
) *InstrumentedEmbedder {
	p := &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		batchSize: DefaultMaxAPIBatchSize,
		logger:    logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Embed checks the budget, delegates and records usage.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.checkBudget(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.record(result.TotalTokens)
	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed splits texts into provider-sized batches, re-checking the budget between them.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for offset := 0; offset < len(texts); offset += p.batchSize {
		if err := p.checkBudget(ctx, len(texts)); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}

		part := texts[offset:min(offset+p.batchSize, len(texts))]
		res, err := domain.EmbedAll(ctx, p.inner, part)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("offset", offset),
				zap.Int("size", len(part)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed at %d: %w", offset, err)
		}
		if len(res.Embeddings) != len(part) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"batch embed at %d: got %d vectors for %d texts: %w",
				offset, len(res.Embeddings), len(part), domain.ErrEmbeddingProviderError)
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
		p.record(res.TotalTokens)
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck delegates when the inner embedder supports it.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedder health: %w", err)
		}
	}
	return nil
}

func (p *InstrumentedEmbedder) checkBudget(ctx context.Context, n int) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Error("Embedding budget exceeded",
			zap.String("provider", p.provider),
			zap.Int("texts", n),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *InstrumentedEmbedder) record(tokens int) {
	if p.budget == nil || tokens <= 0 {
		return
	}
	p.budget.Record(int64(tokens))
	metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}
