package extraction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/usage"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request; the caller falls back to degraded tags.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// period is one rolling budget window (a UTC day or month).
type period struct {
	name     string
	layout   string
	limit    int64
	used     int64
	calls    int64
	start    time.Time
	truncate func(time.Time) time.Time
}

func (p *period) roll(now time.Time) {
	if cur := p.truncate(now); cur.After(p.start) {
		p.used = 0
		p.calls = 0
		p.start = cur
	}
}

func (p *period) exceeded() bool {
	return p.limit > 0 && p.used >= p.limit
}

func (p *period) counters() usage.Counters {
	return usage.Counters{Limit: p.limit, Used: p.used, Calls: p.calls}
}

// remaining returns tokens left, -1 if unlimited.
func (p *period) remaining() int64 {
	return p.counters().Remaining()
}

// BudgetTracker caps extraction token spend per day and month.
// Check is in-memory only; Record writes behind to the store when one is attached.
type BudgetTracker struct {
	mu      sync.Mutex
	daily   period
	monthly period
	total   usage.Counters // since process start
	action  BudgetAction
	scope   string
	now     func() time.Time
	store   BudgetStore
	logger  *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit means unlimited.
func NewBudgetTracker(
	scope string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	now := time.Now().UTC()
	return &BudgetTracker{
		daily: period{
			name: "daily", layout: "2006-01-02", limit: dailyLimit,
			start: truncateToDay(now), truncate: truncateToDay,
		},
		monthly: period{
			name: "monthly", layout: "2006-01", limit: monthlyLimit,
			start: truncateToMonth(now), truncate: truncateToMonth,
		},
		action: action,
		scope:  scope,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// WithStore attaches a persistence store and loads the current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, p := range []*period{&b.daily, &b.monthly} {
		val, err := store.Get(ctx, b.key(p, now))
		if err != nil {
			b.logger.Warn("Failed to load extraction budget from store",
				zap.String("period", p.name), zap.Error(err))
			continue
		}
		p.used = val
	}

	b.logger.Info("Extraction budget loaded from store",
		zap.String("scope", b.scope),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

// key follows craftsearch:budget:{scope}:{daily|monthly}:{date}.
func (b *BudgetTracker) key(p *period, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.scope, p.name, t.Format(p.layout))
}

// Check verifies the budget allows a new provider call.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	if !b.daily.exceeded() && !b.monthly.exceeded() {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrExtractionQuotaExceeded
	}

	b.logger.Warn("Extraction token budget exceeded",
		zap.String("scope", b.scope),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

// Record registers consumed tokens.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollLocked()
	b.daily.used += tokens
	b.monthly.used += tokens
	b.daily.calls++
	b.monthly.calls++
	b.total.Used += tokens
	b.total.Calls++
	store := b.store
	now := b.now()
	keys := []string{b.key(&b.daily, now), b.key(&b.monthly, now)}
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Background context: the caller's request may already be finished.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, k := range keys {
		if err := store.IncrBy(ctx, k, tokens); err != nil {
			b.logger.Warn("Failed to persist extraction budget", zap.String("key", k), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left today (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.daily.remaining()
}

// RemainingMonthly returns tokens left this month (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.monthly.remaining()
}

// Counters returns the window state for a report period.
// Calls are counted in memory only and restart with the process.
func (b *BudgetTracker) Counters(p usage.Period) usage.Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	switch p {
	case usage.PeriodDay:
		return b.daily.counters()
	case usage.PeriodMonth:
		return b.monthly.counters()
	default:
		return b.total
	}
}

func (b *BudgetTracker) rollLocked() {
	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
