package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckIndex     = "index"
	CheckEmbedding = "embedding"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index     IndexPinger
	embedding EmbeddingChecker
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Service. embedding can be nil.
func New(index IndexPinger, embedding EmbeddingChecker, logger *zap.Logger) *Service {
	return &Service{index: index, embedding: embedding, timeout: DefaultTimeout, logger: logger}
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checkers := map[string]func(context.Context) error{
		CheckIndex: s.index.Ping,
	}
	if s.embedding != nil {
		checkers[CheckEmbedding] = s.embedding.HealthCheck
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(checkers))
	)
	for name, check := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := check(cctx); err != nil {
				res = CheckError
				s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
