package domain

import (
	"context"
	"sync"
)

type extractionUsageKey struct{}

// ExtractionUsage collects provider token usage for a single HTTP request.
// Image extraction runs concurrently, so writes are guarded.
type ExtractionUsage struct {
	mu          sync.Mutex
	totalTokens int
	used        bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ExtractionUsage) {
	u := &ExtractionUsage{}
	return context.WithValue(ctx, extractionUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ExtractionUsage {
	u, _ := ctx.Value(extractionUsageKey{}).(*ExtractionUsage)
	return u
}

// AddTokens records consumed tokens.
func (u *ExtractionUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.totalTokens += n
	u.used = true
	u.mu.Unlock()
}

// Snapshot returns the recorded total and whether a provider was called.
func (u *ExtractionUsage) Snapshot() (totalTokens int, used bool) {
	if u == nil {
		return 0, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTokens, u.used
}
