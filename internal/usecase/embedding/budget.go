package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// BudgetAction defines behavior when the token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs and lets the call through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the call with domain.ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists usage counters so that restarts do not reset the budget.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetConfig describes the token caps. A zero limit means unlimited.
type BudgetConfig struct {
	Provider     string
	KeyPrefix    string
	DailyLimit   int64
	MonthlyLimit int64
	Action       BudgetAction
}

// BudgetTracker counts embedding tokens per UTC day and month.
// Check reads memory only; Record writes through to the store when one is attached.
type BudgetTracker struct {
	mu          sync.Mutex
	cfg         BudgetConfig
	dailyUsed   int64
	monthlyUsed int64
	day         time.Time
	month       time.Time
	store       BudgetStore
	now         func() time.Time
	logger      *zap.Logger
}

// NewBudgetTracker creates a tracker with empty counters.
func NewBudgetTracker(cfg BudgetConfig, logger *zap.Logger) *BudgetTracker {
	if cfg.Action == "" {
		cfg.Action = BudgetActionWarn
	}
	b := &BudgetTracker{cfg: cfg, now: time.Now, logger: logger}
	b.day, b.month = periods(b.now())
	return b
}

// WithStore attaches persistence and loads the current period counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now().UTC()
	if v, err := store.Get(ctx, b.dailyKey(now)); err == nil {
		b.dailyUsed = v
	} else {
		b.logger.Warn("Failed to load daily budget", zap.Error(err))
	}
	if v, err := store.Get(ctx, b.monthlyKey(now)); err == nil {
		b.monthlyUsed = v
	} else {
		b.logger.Warn("Failed to load monthly budget", zap.Error(err))
	}

	b.logger.Info("Embedding budget loaded",
		zap.String("provider", b.cfg.Provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
	return b
}

func (b *BudgetTracker) dailyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", b.cfg.KeyPrefix, b.cfg.Provider, t.Format(time.DateOnly))
}

func (b *BudgetTracker) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", b.cfg.KeyPrefix, b.cfg.Provider, t.Format("2006-01"))
}

// Check reports whether another provider call is allowed.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()

	daily := b.cfg.DailyLimit > 0 && b.dailyUsed >= b.cfg.DailyLimit
	monthly := b.cfg.MonthlyLimit > 0 && b.monthlyUsed >= b.cfg.MonthlyLimit
	if !daily && !monthly {
		return nil
	}
	if b.cfg.Action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Embedding budget exceeded",
		zap.String("provider", b.cfg.Provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.cfg.DailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.cfg.MonthlyLimit),
	)
	return nil
}

// Record adds consumed tokens to both periods.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.roll()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	store := b.store
	now := b.now().UTC()
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range []string{b.dailyKey(now), b.monthlyKey(now)} {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist embedding budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left today, or -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return remaining(b.cfg.DailyLimit, b.dailyUsed)
}

// RemainingMonthly returns tokens left this month, or -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return remaining(b.cfg.MonthlyLimit, b.monthlyUsed)
}

// DailyLimit returns the daily cap; 0 means unlimited.
func (b *BudgetTracker) DailyLimit() int64 { return b.cfg.DailyLimit }

// MonthlyLimit returns the monthly cap; 0 means unlimited.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.cfg.MonthlyLimit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.dailyUsed
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.monthlyUsed
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

// roll zeroes counters when the UTC day or month changes. Caller holds mu.
func (b *BudgetTracker) roll() {
	day, month := periods(b.now())
	if day.After(b.day) {
		b.dailyUsed = 0
		b.day = day
	}
	if month.After(b.month) {
		b.monthlyUsed = 0
		b.month = month
	}
}

func periods(t time.Time) (day, month time.Time) {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
