package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artomart/craftsearch/internal/domain"
	dombatch "github.com/artomart/craftsearch/internal/domain/batch"
)

// Batch defaults.
const (
	MaxBatchSize       = 100
	DefaultConcurrency = 4
)

// Service indexes product batches with per-item error reporting.
type Service struct {
	indexer      Indexer
	maxBatchSize int
	concurrency  int
	logger       *zap.Logger
}

// New creates a batch service.
func New(indexer Indexer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		indexer:      indexer,
		maxBatchSize: MaxBatchSize,
		concurrency:  DefaultConcurrency,
		logger:       logger,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithConcurrency configures how many products are indexed at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// MaxBatchSize returns the configured batch limit.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// Index indexes every product and returns one result per item, in input order.
// An oversized batch fails as a whole; otherwise items fail independently.
func (s *Service) Index(ctx context.Context, items []domain.Product) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i := range items {
			results[i] = dombatch.NewError(
				items[i].ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidProduct),
			)
		}
		return results
	}

	// Item errors are reported in results, never through the group,
	// so one failure does not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range items {
		g.Go(func() error {
			results[i] = s.indexOne(ctx, items[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	s.logger.Info("Batch indexed",
		zap.Int("items", len(items)),
		zap.Int("failed", failed),
	)
	return results
}

func (s *Service) indexOne(ctx context.Context, p domain.Product) (r dombatch.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Panic while indexing product", zap.String("product_id", p.ID), zap.Any("panic", rec), zap.Stack("stack"))
			r = dombatch.NewError(p.ID, fmt.Errorf("panic: %v", rec))
		}
	}()

	entry, err := s.indexer.Index(ctx, p)
	if err != nil {
		return dombatch.NewError(p.ID, err)
	}
	return dombatch.NewIndexed(&entry)
}
