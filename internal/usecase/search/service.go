package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/embedding"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	"github.com/artomart/craftsearch/internal/domain/search/result"
	"github.com/artomart/craftsearch/internal/metrics"
	"github.com/artomart/craftsearch/internal/usecase/analytics"
)

// Service ranks indexed products against free-text queries.
type Service struct {
	extractor QueryExtractor
	index     Index
	history   HistoryRecorder
	maxLimit  int
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a search service.
func New(extractor QueryExtractor, index Index, history HistoryRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		index:     index,
		history:   history,
		maxLimit:  request.MaxLimit,
		now:       time.Now,
		logger:    logger,
	}
}

// WithMaxLimit caps the per-search result limit.
func (s *Service) WithMaxLimit(n int) *Service {
	if n > 0 {
		s.maxLimit = n
	}
	return s
}

type candidate struct {
	entry    *domain.Entry
	sim      float64
	adjusted float64
}

// Search never fails: problems are reported in Response.Error with no results.
// Every completed search is appended to the history log.
func (s *Service) Search(ctx context.Context, query string, opts request.Options) (resp result.Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic during search", zap.String("query", query), zap.Any("panic", r), zap.Stack("stack"))
			resp = result.Failed(fmt.Errorf("search failed: %v", r))
		}
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		metrics.SearchesTotal.WithLabelValues(searchStatus(&resp)).Inc()
	}()

	if err := request.ValidateQuery(query); err != nil {
		return result.Failed(fmt.Errorf("%w: %w", domain.ErrInvalidOptions, err))
	}
	opts = opts.Normalize(s.maxLimit)

	lex := s.extractor.ExtractText(ctx, query)
	if err := ctx.Err(); err != nil {
		return result.Failed(fmt.Errorf("search canceled: %w", err))
	}
	queryVec := embedding.FromTags(lex.Bundle.All())

	snapshot := s.index.Snapshot()
	candidates := make([]candidate, 0, len(snapshot))
	for i := range snapshot {
		e := &snapshot[i]
		sim := embedding.Cosine(queryVec, e.Combined)
		if sim < opts.Threshold {
			continue
		}
		candidates = append(candidates, candidate{
			entry:    e,
			sim:      sim,
			adjusted: sim * culturalBoost(lex.Bundle, &e.Product, opts),
		})
	}

	// Snapshot is in insertion order, so equal scores keep it.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].adjusted > candidates[j].adjusted
	})

	totalFound := len(candidates)
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	hits := make([]result.Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = result.Hit{
			Product:       c.entry.Product.Clone(),
			Similarity:    c.sim,
			AdjustedScore: c.adjusted,
			MatchedTags:   matchedTags(lex.Bundle, c.entry.Lexical),
		}
		if opts.IncludeImageSearch {
			hits[i].ImageAnalyses = c.entry.ImageAnalyses()
		}
	}

	resp = result.Response{Results: hits, TotalFound: totalFound}
	s.history.Record(analytics.Entry{
		Query:       query,
		Timestamp:   s.now(),
		ResultCount: len(hits),
		TopScore:    resp.TopScore(),
	})

	s.logger.Debug("Search completed",
		zap.String("query_source", string(lex.Source)),
		zap.Int("scanned", len(snapshot)),
		zap.Int("total_found", totalFound),
		zap.Int("returned", len(hits)),
	)
	return resp
}

// Similar ranks other entries by cosine against the stored embedding of a product.
// No boost is applied and nothing is recorded in history.
func (s *Service) Similar(ctx context.Context, req *request.SimilarRequest) ([]result.Hit, error) {
	ref, ok := s.index.Get(req.ProductID())
	if !ok {
		return nil, fmt.Errorf("product %q: %w", req.ProductID(), domain.ErrProductNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("similar canceled: %w", err)
	}

	snapshot := s.index.Snapshot()
	candidates := make([]candidate, 0, len(snapshot))
	for i := range snapshot {
		e := &snapshot[i]
		if e.Product.ID == ref.Product.ID {
			continue
		}
		sim := embedding.Cosine(ref.Combined, e.Combined)
		if sim < req.MinScore() {
			continue
		}
		candidates = append(candidates, candidate{entry: e, sim: sim, adjusted: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if len(candidates) > req.Limit() {
		candidates = candidates[:req.Limit()]
	}

	hits := make([]result.Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = result.Hit{
			Product:       c.entry.Product.Clone(),
			Similarity:    c.sim,
			AdjustedScore: c.adjusted,
			MatchedTags:   matchedTags(ref.Lexical, c.entry.Lexical),
			ImageAnalyses: c.entry.ImageAnalyses(),
		}
	}
	return hits, nil
}

func searchStatus(r *result.Response) string {
	switch {
	case r.Error != "":
		return "error"
	case len(r.Results) == 0:
		return "empty"
	default:
		return "hit"
	}
}
