package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index and search Prometheus metrics.
var (
	IndexedProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "indexed_products_total",
			Help:      "Products submitted for indexing",
		},
		[]string{"status"}, // "success" / "error"
	)

	IndexProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "craftsearch",
			Name:      "index_products",
			Help:      "Number of products currently in the index",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftsearch",
			Name:      "searches_total",
			Help:      "Search requests by outcome",
		},
		[]string{"status"}, // "hit" / "empty" / "error"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "craftsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration including query extraction",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers index and search metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexedProductsTotal)
	prometheus.MustRegister(IndexProducts)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	engineMetricsRegistered = true
}
