package metrics

import "github.com/prometheus/client_golang/prometheus"

// Extraction Prometheus metrics.
var (
	ExtractionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "extraction_requests_total",
			Help:      "Total number of tag extraction requests",
		},
		[]string{"kind", "model", "status"},
	)

	ExtractionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "craftsearch",
			Name:      "extraction_request_duration_seconds",
			Help:      "Tag extraction request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "model"},
	)

	ExtractionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "extraction_tokens_total",
			Help:      "Total extraction tokens consumed",
		},
		[]string{"kind", "model", "type"},
	)

	ExtractionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "extraction_errors_total",
			Help:      "Total extraction errors",
		},
		[]string{"kind", "model", "error_type"},
	)

	// ExtractionOutcomesTotal counts which path produced the tags.
	ExtractionOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "extraction_outcomes_total",
			Help:      "Extraction results by source (extracted, cached, simulated, fallback)",
		},
		[]string{"kind", "source"},
	)

	ExtractionBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "craftsearch",
			Name:      "extraction_budget_tokens_remaining",
			Help:      "Remaining extraction token budget",
		},
		[]string{"period"},
	)

	TagCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "tag_cache_total",
			Help:      "Tag cache hits and misses",
		},
		[]string{"kind", "result"}, // "hit" / "miss"
	)
)

var extractionMetricsRegistered bool

// RegisterExtractionMetrics registers Prometheus extraction metrics. Must be called once from main.
func RegisterExtractionMetrics() {
	if extractionMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExtractionRequestsTotal)
	prometheus.MustRegister(ExtractionRequestDuration)
	prometheus.MustRegister(ExtractionTokensTotal)
	prometheus.MustRegister(ExtractionErrorsTotal)
	prometheus.MustRegister(ExtractionOutcomesTotal)
	prometheus.MustRegister(ExtractionBudgetTokensRemaining)
	prometheus.MustRegister(TagCacheTotal)
	extractionMetricsRegistered = true
}
