package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/ragchat/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil, in which case usage reads as zero.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds the embedding usage report for the current period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())

	var used, limit int64
	if s.br != nil {
		if period == domusage.PeriodMonth {
			used, limit = s.br.MonthlyUsed(), s.br.MonthlyLimit()
		} else {
			used, limit = s.br.DailyUsed(), s.br.DailyLimit()
		}
	}
	return domusage.NewReport(period, start, end, used, limit)
}
