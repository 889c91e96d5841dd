package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service-level Prometheus metrics. The detection-invocation counter is also
// the observable hook that proves the idempotency cache short-circuits
// repeat payloads.
var (
	DetectionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surveillance_detection_runs_total",
		Help: "Detector executions, excluding idempotency cache hits.",
	}, []string{"algorithm"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surveillance_cache_hits_total",
		Help: "Idempotency cache hits per algorithm.",
	}, []string{"algorithm"})

	SequencesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surveillance_sequences_found_total",
		Help: "Suspicious sequences emitted per algorithm.",
	}, []string{"algorithm"})

	WorkerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surveillance_worker_retries_total",
		Help: "Coordinator retry attempts per worker target.",
	}, []string{"algorithm"})

	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surveillance_runs_total",
		Help: "Orchestration runs by final status.",
	}, []string{"status"})
)

// MetricsHandler exposes the Prometheus registry under gin.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
