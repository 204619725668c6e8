package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/metrics"
)

// NewRouter mounts the API routes behind the standard middleware stack.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/products/batch", s.IndexProducts)
		r.Put("/products/{id}", s.IndexProduct)
		r.Get("/products/{id}/similar", s.SimilarProducts)

		r.Get("/search", s.SearchGet)
		r.Post("/search", s.SearchPost)

		r.Get("/analytics", s.SearchAnalytics)

		r.Get("/index/stats", s.IndexStats)
		r.Delete("/index", s.ClearIndex)

		r.Delete("/cache/tags", s.PurgeTagCache)
		r.Get("/usage", s.ExtractionUsage)
	})

	return r
}
