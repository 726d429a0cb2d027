package chat

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Defaults for result sizes.
const (
	DefaultTopK = 4
	DefaultMaxK = 20
)

// Response is one chat turn.
type Response struct {
	Answer        string
	Sources       []chunk.Chunk
	RetrievalUsed bool
	LatencyMs     float64
}

// Config tunes retrieval behavior.
type Config struct {
	DefaultTopK    int
	MaxTopK        int
	DegradeOnError bool
}

// Service answers chat messages from the knowledge base.
type Service struct {
	searcher Searcher
	policy   Policy
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a chat service.
func New(searcher Searcher, policy Policy, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxK
	}
	cfg.DefaultTopK = min(cfg.DefaultTopK, cfg.MaxTopK)
	return &Service{searcher: searcher, policy: policy, cfg: cfg, logger: logger, now: time.Now}
}

// Chat answers message, retrieving context only when the policy asks for it.
func (s *Service) Chat(ctx context.Context, message string, topK int) (Response, error) {
	start := s.now()
	if strings.TrimSpace(message) == "" {
		return Response{}, fmt.Errorf("%w: message is empty", domain.ErrValidation)
	}

	var sources []chunk.Chunk
	used := s.policy.ShouldRetrieve(message)
	outcome := "skipped"
	if used {
		var err error
		sources, err = s.retrieve(ctx, message, topK)
		switch {
		case err != nil && !s.cfg.DegradeOnError:
			return Response{}, err
		case err != nil:
			s.logger.Warn("Retrieval failed, answering without sources", zap.Error(err))
			outcome = "degraded"
		case len(sources) == 0:
			outcome = "empty"
		default:
			outcome = "hit"
		}
	}
	metrics.ChatRequestsTotal.WithLabelValues(outcome).Inc()

	if sources == nil {
		sources = []chunk.Chunk{}
	}
	return Response{
		Answer:        Compose(message, sources),
		Sources:       sources,
		RetrievalUsed: used,
		LatencyMs:     elapsedMs(start, s.now()),
	}, nil
}

// Search always retrieves and composes, regardless of the policy.
func (s *Service) Search(ctx context.Context, query string, topK int) (string, []chunk.Chunk, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}
	sources, err := s.retrieve(ctx, query, topK)
	if err != nil {
		return "", nil, err
	}
	return Compose(query, sources), sources, nil
}

// ResolveTopK applies the default and the cap.
func (s *Service) ResolveTopK(topK int) int {
	if topK <= 0 {
		return s.cfg.DefaultTopK
	}
	return min(topK, s.cfg.MaxTopK)
}

func (s *Service) retrieve(ctx context.Context, query string, topK int) ([]chunk.Chunk, error) {
	matches, err := s.searcher.Search(ctx, query, s.ResolveTopK(topK))
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	out := make([]chunk.Chunk, len(matches))
	for i := range matches {
		out[i] = matches[i].Chunk
	}
	s.logger.Debug("Retrieved chunks", zap.Int("count", len(out)))
	return out, nil
}

func elapsedMs(start, end time.Time) float64 {
	ms := float64(end.Sub(start)) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
