package chi

import (
	"context"

	"github.com/artomart/craftsearch/internal/domain"
	dombatch "github.com/artomart/craftsearch/internal/domain/batch"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	"github.com/artomart/craftsearch/internal/domain/search/result"
	domusage "github.com/artomart/craftsearch/internal/domain/usage"
	"github.com/artomart/craftsearch/internal/engine"
	"github.com/artomart/craftsearch/internal/usecase/analytics"
	healthuc "github.com/artomart/craftsearch/internal/usecase/health"
)

// Engine is the retrieval engine as seen by the HTTP layer.
type Engine interface {
	IndexProductEntry(ctx context.Context, p domain.Product) (domain.Entry, error)
	IndexProducts(ctx context.Context, items []domain.Product) []dombatch.Result
	MaxBatchSize() int
	SearchProducts(ctx context.Context, query string, opts request.Options) result.Response
	SimilarProducts(ctx context.Context, id string, limit int, minScore float64) ([]result.Hit, error)
	DefaultOptions() request.Options
	SearchAnalytics() analytics.Summary
	RecentSearches(n int) []analytics.Entry
	ClearIndex()
	IndexStats() engine.Stats
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// CachePurger drops cached extraction results.
type CachePurger interface {
	Purge(ctx context.Context) (int, error)
}

// UsageReporter reports extraction provider consumption.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
