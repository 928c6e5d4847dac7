package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and ranking Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsrank",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "status"}, // mode: "base" / "ltr"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsrank",
			Name:      "search_duration_seconds",
			Help:      "Search request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsrank",
			Name:      "search_candidates",
			Help:      "Fused candidates produced per search before truncation",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// RerankerModelLoaded is 1 while a ranking model artifact is active.
	RerankerModelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsrank",
			Name:      "reranker_model_loaded",
			Help:      "Whether a ranking model artifact is loaded (1) or base fusion is serving (0)",
		},
	)

	ModelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsrank",
			Name:      "model_reloads_total",
			Help:      "Total ranking model artifact swaps",
		},
		[]string{"status"},
	)
)

// RegisterSearchMetrics registers search metrics explicitly (no init()).
func RegisterSearchMetrics() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDuration,
		SearchCandidates,
		RerankerModelLoaded,
		ModelReloadsTotal,
	)
}
