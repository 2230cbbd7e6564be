package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "strategy", "status"}, // status: ok / invalid / timeout / unavailable / error
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode", "cache"}, // cache: hit / miss
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Result cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "expired"
	)

	SearchCacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_evictions_total",
			Help:      "Result cache evictions",
		},
		[]string{"reason"}, // "expired" / "capacity" / "cleared"
	)

	SearchSlowTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_slow_total",
			Help:      "Searches slower than the configured threshold",
		},
	)

	SuggestTrackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggest_track_total",
			Help:      "Query tracking writes",
		},
		[]string{"status"}, // "ok" / "error" / "dropped"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SearchCacheEvictionsTotal)
	prometheus.MustRegister(SearchSlowTotal)
	prometheus.MustRegister(SuggestTrackTotal)
	searchMetricsRegistered = true
}
