// Package metrics exposes Prometheus instruments for the ingestion and
// query pipelines. Instruments live on a private registry so tests and
// embedding programs do not collide with the default one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hask"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var registry = prometheus.NewRegistry()

var (
	// IngestRuns counts ingestion runs by terminal stage and outcome.
	IngestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "runs_total",
		Help:      "Ingestion runs by terminal stage and outcome.",
	}, []string{"stage", "outcome"})

	// ChunksIndexed counts chunks added to the vector index by ingestion.
	ChunksIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "chunks_indexed_total",
		Help:      "Chunks added to the vector index.",
	})

	// ProviderCalls counts external provider attempts.
	ProviderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "External provider attempts by provider, operation and outcome.",
	}, []string{"provider", "operation", "outcome"})

	// ProviderRetries counts retried provider attempts.
	ProviderRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "retries_total",
		Help:      "Retried provider attempts.",
	}, []string{"provider", "operation"})

	// Degradations counts query stages that fell back to a cheaper result.
	Degradations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "degradations_total",
		Help:      "Query stages that fell back (rerank, summary).",
	}, []string{"stage"})

	// QueryDuration observes end-to-end query latency.
	QueryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "End-to-end query latency.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// CacheLookups counts embedding cache lookups by result.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding_cache",
		Name:      "lookups_total",
		Help:      "Embedding cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)

func init() {
	registry.MustRegister(
		IngestRuns,
		ChunksIndexed,
		ProviderCalls,
		ProviderRetries,
		Degradations,
		QueryDuration,
		CacheLookups,
	)
}

// Registry returns the registry holding every hask instrument.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Outcome maps an error onto an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
