// Package engine is the public surface of the retrieval engine: one instance per
// process, built by the composition root and shared by reference.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	dombatch "github.com/artomart/craftsearch/internal/domain/batch"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	"github.com/artomart/craftsearch/internal/domain/search/result"
	"github.com/artomart/craftsearch/internal/metrics"
	"github.com/artomart/craftsearch/internal/repository/catalog"
	"github.com/artomart/craftsearch/internal/usecase/analytics"
	"github.com/artomart/craftsearch/internal/usecase/batch"
	"github.com/artomart/craftsearch/internal/usecase/extraction"
	"github.com/artomart/craftsearch/internal/usecase/index"
	"github.com/artomart/craftsearch/internal/usecase/search"
)

// Config tunes the engine. Zero values take package defaults.
type Config struct {
	ExtractionTimeout time.Duration
	MaxImages         int
	MaxBatchSize      int
	BatchConcurrency  int
	MaxLimit          int
	Defaults          request.Options
	Analytics         analytics.Options
}

// Stats describes the index contents.
type Stats struct {
	TotalProducts int        `json:"totalProducts"`
	IndexSize     int        `json:"indexSize"`
	SearchHistory int        `json:"searchHistory"`
	LastIndexed   *time.Time `json:"lastIndexed"`
}

// Engine indexes products and answers searches over them.
type Engine struct {
	catalog  *catalog.Store
	history  *analytics.Recorder
	indexer  *index.Service
	batch    *batch.Service
	search   *search.Service
	defaults request.Options
	logger   *zap.Logger
}

// New builds an engine around the given providers. Either tagger may be nil,
// in which case extraction always degrades to the fallback tags.
func New(text domain.TextTagger, image domain.ImageTagger, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Defaults.Limit == 0 {
		cfg.Defaults = request.Default()
	}

	ex := extraction.New(text, image, cfg.ExtractionTimeout, logger.Named("extraction"))
	store := catalog.New()
	history := analytics.New(cfg.Analytics)

	indexer := index.New(ex, store, logger.Named("index")).WithMaxImages(cfg.MaxImages)

	return &Engine{
		catalog: store,
		history: history,
		indexer: indexer,
		batch: batch.New(indexer, logger.Named("batch")).
			WithMaxBatchSize(cfg.MaxBatchSize).
			WithConcurrency(cfg.BatchConcurrency),
		search:   search.New(ex, store, history, logger.Named("search")).WithMaxLimit(cfg.MaxLimit),
		defaults: cfg.Defaults,
		logger:   logger,
	}
}

// DefaultOptions returns the configured search defaults.
func (e *Engine) DefaultOptions() request.Options { return e.defaults }

// MaxBatchSize returns the largest batch IndexProducts accepts.
func (e *Engine) MaxBatchSize() int { return e.batch.MaxBatchSize() }

// IndexProduct indexes or re-indexes a product. It returns false when the
// product could not be indexed; the previous entry, if any, is left in place.
func (e *Engine) IndexProduct(ctx context.Context, p domain.Product) bool {
	_, err := e.indexProduct(ctx, p)
	return err == nil
}

// IndexProductEntry is IndexProduct returning the stored entry or the failure reason.
func (e *Engine) IndexProductEntry(ctx context.Context, p domain.Product) (domain.Entry, error) {
	return e.indexProduct(ctx, p)
}

func (e *Engine) indexProduct(ctx context.Context, p domain.Product) (entry domain.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic while indexing product", zap.String("product_id", p.ID), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("index product %q: %v", p.ID, r)
		}
		e.observeIndexed(err == nil)
	}()

	entry, err = e.indexer.Index(ctx, p)
	if err != nil {
		e.logger.Warn("Product not indexed", zap.String("product_id", p.ID), zap.Error(err))
		return domain.Entry{}, err
	}
	return entry, nil
}

// IndexProducts indexes a batch and reports one result per product, in input order.
func (e *Engine) IndexProducts(ctx context.Context, items []domain.Product) []dombatch.Result {
	results := e.batch.Index(ctx, items)
	for _, r := range results {
		e.observeIndexed(r.OK())
	}
	return results
}

// SearchProducts ranks indexed products against a free-text query. It never fails;
// errors are reported in the response.
func (e *Engine) SearchProducts(ctx context.Context, query string, opts request.Options) result.Response {
	return e.search.Search(ctx, query, opts)
}

// SimilarProducts ranks other products by similarity to an indexed one.
func (e *Engine) SimilarProducts(ctx context.Context, id string, limit int, minScore float64) ([]result.Hit, error) {
	req, err := request.NewSimilar(id, limit, minScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOptions, err)
	}
	return e.search.Similar(ctx, &req)
}

// SearchAnalytics summarizes the search history.
func (e *Engine) SearchAnalytics() analytics.Summary {
	return e.history.Summary()
}

// RecentSearches returns up to n newest history entries.
func (e *Engine) RecentSearches(n int) []analytics.Entry {
	return e.history.Recent(n)
}

// ClearIndex removes every indexed product. Search history is kept.
func (e *Engine) ClearIndex() {
	e.catalog.Clear()
	metrics.IndexProducts.Set(0)
	e.logger.Info("Index cleared")
}

// Len returns the number of indexed products.
func (e *Engine) Len() int { return e.catalog.Len() }

// IndexStats reports index size and history length.
func (e *Engine) IndexStats() Stats {
	cs := e.catalog.Stats()
	s := Stats{
		TotalProducts: cs.Products,
		IndexSize:     cs.Vectors,
		SearchHistory: e.history.Len(),
	}
	if !cs.LastIndexed.IsZero() {
		t := cs.LastIndexed
		s.LastIndexed = &t
	}
	return s
}

func (e *Engine) observeIndexed(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	metrics.IndexedProductsTotal.WithLabelValues(status).Inc()
	metrics.IndexProducts.Set(float64(e.catalog.Len()))
}
