package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	domusage "github.com/artomart/craftsearch/internal/domain/usage"
	"github.com/artomart/craftsearch/internal/logger"
)

// maxBodyBytes bounds request bodies; products may carry inline base64 images.
const maxBodyBytes = 16 << 20

// maxRecent caps the history entries returned by the analytics endpoint.
const maxRecent = 100

// Server serves the engine over HTTP.
type Server struct {
	engine        Engine
	health        HealthChecker
	purger        CachePurger
	usage         UsageReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. purger may be nil when no cache database is configured.
func NewServer(engine Engine, health HealthChecker, purger CachePurger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:        engine,
		health:        health,
		purger:        purger,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithUsage enables the extraction usage endpoint.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// IndexProduct handles PUT /api/v1/products/{id}.
func (s *Server) IndexProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decodeBody(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")

	ctx := logger.With(r.Context(), zap.String("product_id", p.ID))
	ctx, usage := domain.NewContextWithUsage(ctx)
	entry, err := s.engine.IndexProductEntry(ctx, p)
	setExtractionHeaders(w, usage)
	if err != nil {
		logger.FromContext(ctx).Warn("Product not indexed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidProduct) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, indexResponse{
			Indexed: false,
			ID:      p.ID,
			Code:    errorCode(err),
			Message: safeDomainMessage(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, entryToResponse(&entry))
}

// IndexProducts handles POST /api/v1/products/batch.
func (s *Server) IndexProducts(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "products must not be empty")
		return
	}
	if limit := s.engine.MaxBatchSize(); len(req.Products) > limit {
		writeError(w, http.StatusBadRequest, ErrorCodeBatchTooLarge,
			"batch size exceeds maximum of "+strconv.Itoa(limit))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results := s.engine.IndexProducts(ctx, req.Products)
	setExtractionHeaders(w, usage)

	resp := batchResponse{Items: make([]batchItem, len(results))}
	for i, res := range results {
		resp.Items[i] = batchResultToResponse(res)
		if res.OK() {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SimilarProducts handles GET /api/v1/products/{id}/similar.
func (s *Server) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	var limit *int
	var minScore *float64
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid limit")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "min_score", q, &minScore); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid min_score")
		return
	}

	hits, err := s.engine.SimilarProducts(r.Context(), chi.URLParam(r, "id"), deref(limit, 0), deref(minScore, 0))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{Results: hitsToResponse(hits)})
}

// SearchPost handles POST /api/v1/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	opts := s.engine.DefaultOptions()
	opts.Limit = deref(req.Limit, opts.Limit)
	opts.Threshold = deref(req.Threshold, opts.Threshold)
	opts.IncludeImageSearch = deref(req.IncludeImageSearch, opts.IncludeImageSearch)
	opts.BoostCultural = deref(req.BoostCultural, opts.BoostCultural)
	opts.UserRegion = deref(req.UserRegion, opts.UserRegion)

	s.search(w, r, req.Query, opts)
}

// SearchGet handles GET /api/v1/search?q=&limit=&threshold=&region=&images=&boost=.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	var (
		query     string
		limit     *int
		threshold *float64
		region    *string
		images    *bool
		boost     *bool
	)
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dest any
	}{
		{"q", &query},
		{"limit", &limit},
		{"threshold", &threshold},
		{"region", &region},
		{"images", &images},
		{"boost", &boost},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameter "+p.name)
			return
		}
	}

	opts := s.engine.DefaultOptions()
	opts.Limit = deref(limit, opts.Limit)
	opts.Threshold = deref(threshold, opts.Threshold)
	opts.IncludeImageSearch = deref(images, opts.IncludeImageSearch)
	opts.BoostCultural = deref(boost, opts.BoostCultural)
	opts.UserRegion = deref(region, opts.UserRegion)

	s.search(w, r, query, opts)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query string, opts request.Options) {
	if err := request.ValidateQuery(query); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	if opts.Threshold < -1 || opts.Threshold > 1 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "threshold must be between -1 and 1")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp := s.engine.SearchProducts(ctx, query, opts)
	setExtractionHeaders(w, usage)

	writeJSON(w, http.StatusOK, searchResponse{
		Results:    hitsToResponse(resp.Results),
		TotalFound: resp.TotalFound,
		Error:      resp.Error,
	})
}

// SearchAnalytics handles GET /api/v1/analytics?recent=.
func (s *Server) SearchAnalytics(w http.ResponseWriter, r *http.Request) {
	var recent *int
	if err := runtime.BindQueryParameter("form", true, false, "recent", r.URL.Query(), &recent); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid recent")
		return
	}

	resp := analyticsResponse{Summary: s.engine.SearchAnalytics()}
	if n := min(deref(recent, 0), maxRecent); n > 0 {
		resp.Recent = s.engine.RecentSearches(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

// IndexStats handles GET /api/v1/index/stats.
func (s *Server) IndexStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.IndexStats())
}

// ClearIndex handles DELETE /api/v1/index.
func (s *Server) ClearIndex(w http.ResponseWriter, _ *http.Request) {
	s.engine.ClearIndex()
	w.WriteHeader(http.StatusNoContent)
}

// PurgeTagCache handles DELETE /api/v1/cache/tags.
func (s *Server) PurgeTagCache(w http.ResponseWriter, r *http.Request) {
	if s.purger == nil {
		writeError(w, http.StatusNotImplemented, ErrorCodeNotConfigured, "tag cache is not configured")
		return
	}
	n, err := s.purger.Purge(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	logger.FromContext(r.Context()).Info("Tag cache purged", zap.Int("keys", n))
	writeJSON(w, http.StatusOK, purgeResponse{Purged: n})
}

// ExtractionUsage handles GET /api/v1/usage.
func (s *Server) ExtractionUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeError(w, http.StatusNotImplemented, ErrorCodeNotConfigured, "usage reporting is not configured")
		return
	}
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToResponse(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Search keeps working on fallback tags, so a degraded dependency is still 200.
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Products: report.Products,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setExtractionHeaders(w http.ResponseWriter, usage *domain.ExtractionUsage) {
	if tokens, used := usage.Snapshot(); used {
		w.Header().Set("X-Extraction-Tokens", strconv.Itoa(tokens))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
