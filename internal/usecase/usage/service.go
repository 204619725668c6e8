package usage

import (
	"context"
	"time"

	domusage "github.com/artomart/craftsearch/internal/domain/usage"
)

// Service handles extraction usage reporting.
type Service struct {
	cr  CounterReader
	now func() time.Time
}

// New creates a Service. cr can be nil (no provider configured).
func New(cr CounterReader) *Service {
	return &Service{cr: cr, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	var start, end int64

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
	default:
		// total: no period boundaries
	}

	if s.cr == nil {
		return domusage.NewReport(period, start, end, false,
			domusage.NewMetrics(0, 0), domusage.NewBudget(0, -1, end))
	}

	c := s.cr.Counters(period)
	return domusage.NewReport(period, start, end, true,
		domusage.NewMetrics(c.Calls, c.Used),
		domusage.NewBudget(c.Limit, c.Remaining(), end))
}
