package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the orchestration pipeline. Registered on the default
// registry; exposed on GET /metrics.
var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_provider_requests_total",
		Help: "Requests issued to downstream providers, by provider and outcome.",
	}, []string{"provider", "outcome"})

	RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_retry_attempts_total",
		Help: "Retry attempts performed by the backoff executor, by error type.",
	}, []string{"error_type"})

	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_cache_operations_total",
		Help: "Cache accessor operations, by namespace and result (hit, miss, error).",
	}, []string{"namespace", "result"})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghost_build_duration_seconds",
		Help:    "End-to-end build orchestration latency.",
		Buckets: prometheus.DefBuckets,
	})
)
