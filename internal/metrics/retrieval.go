package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ohadai",
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"status"}, // "ok" / "degraded" / "error"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ohadai",
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval stage duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // "search" / "rerank" / "total"
	)

	RetrievalChannelFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ohadai",
			Name:      "retrieval_channel_failures_total",
			Help:      "Retrieval channel failures absorbed into degraded results",
		},
		[]string{"channel"}, // "lexical" / "vector"
	)

	RerankTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ohadai",
			Name:      "rerank_total",
			Help:      "Rerank stage outcomes",
		},
		[]string{"status"}, // "ok" / "fallback"
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ohadai",
			Name:      "result_cache_total",
			Help:      "Retrieval result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalChannelFailures)
	prometheus.MustRegister(RerankTotal)
	prometheus.MustRegister(ResultCacheTotal)
	retrievalMetricsRegistered = true
}
