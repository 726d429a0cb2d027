package usage

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", domain.ErrValidation, s)
	}
}

// Bounds returns the UTC [start, end) window of p containing t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is embedding token usage for one period.
type Report struct {
	period    Period
	start     time.Time
	end       time.Time
	used      int64
	limit     int64
	remaining int64
}

// NewReport creates a usage report. limit 0 means unlimited, in which case
// remaining is reported as -1.
func NewReport(period Period, start, end time.Time, used, limit int64) Report {
	remaining := int64(-1)
	if limit > 0 {
		remaining = max(limit-used, 0)
	}
	return Report{
		period:    period,
		start:     start,
		end:       end,
		used:      used,
		limit:     limit,
		remaining: remaining,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the inclusive window start.
func (r *Report) PeriodStart() time.Time { return r.start }

// PeriodEnd returns the exclusive window end, which is also when the budget resets.
func (r *Report) PeriodEnd() time.Time { return r.end }

// TokensUsed returns tokens consumed in the period.
func (r *Report) TokensUsed() int64 { return r.used }

// TokensLimit returns the cap; 0 means unlimited.
func (r *Report) TokensLimit() int64 { return r.limit }

// TokensRemaining returns tokens left, or -1 when unlimited.
func (r *Report) TokensRemaining() int64 { return r.remaining }

// Exhausted reports whether a capped budget is spent.
func (r *Report) Exhausted() bool { return r.limit > 0 && r.remaining == 0 }
