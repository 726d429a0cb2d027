package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// store is the consumer interface for budget counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Default retention for persisted counters.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// Store persists embedding token counters with INCRBY and expiring keys.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Zero TTLs fall back to the defaults.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthlyTTL
	}
	return &Store{store: s, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// IncrBy adds val to the counter and sets its TTL once.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.ttlFor(key), true); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns the counter value, 0 when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) ttlFor(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
