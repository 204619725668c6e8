package usage

import "fmt"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod validates a period name. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return Period(s), nil
	default:
		return "", fmt.Errorf("unknown usage period %q", s)
	}
}

// Counters is the raw state of one budget window. Limit 0 means unlimited.
type Counters struct {
	Limit int64
	Used  int64
	Calls int64
}

// Remaining returns tokens left, -1 if unlimited.
func (c Counters) Remaining() int64 {
	if c.Limit == 0 {
		return -1
	}
	if r := c.Limit - c.Used; r > 0 {
		return r
	}
	return 0
}

// Metrics holds extraction provider consumption for a period.
type Metrics struct {
	providerCalls int64
	tokens        int64
}

// NewMetrics creates a Metrics snapshot.
func NewMetrics(calls, tokens int64) Metrics {
	return Metrics{providerCalls: calls, tokens: tokens}
}

// ProviderCalls returns the number of billed provider requests.
func (m Metrics) ProviderCalls() int64 { return m.providerCalls }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int64 { return m.tokens }

// Budget is the token quota state. A zero limit means unlimited.
type Budget struct {
	tokensLimit     int64
	tokensRemaining int64
	resetsAt        int64 // unix millis, 0 when the period never resets
}

// NewBudget creates a Budget snapshot.
func NewBudget(limit, remaining, resetsAt int64) Budget {
	return Budget{tokensLimit: limit, tokensRemaining: remaining, resetsAt: resetsAt}
}

// TokensLimit returns the token cap.
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensRemaining returns tokens left, -1 if unlimited.
func (b Budget) TokensRemaining() int64 { return b.tokensRemaining }

// IsExhausted reports whether a capped budget is spent.
func (b Budget) IsExhausted() bool { return b.tokensLimit > 0 && b.tokensRemaining <= 0 }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Report is an extraction usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	configured  bool
	metrics     Metrics
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, configured bool, m Metrics, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		configured:  configured,
		metrics:     m,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Configured reports whether an extraction provider is tracked at all.
func (r *Report) Configured() bool { return r.configured }

// Metrics returns the usage metrics.
func (r *Report) Metrics() Metrics { return r.metrics }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }
