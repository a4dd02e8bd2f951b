// Package metrics defines the Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the guardrail engine.
// Pass to services that need to record metrics.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	MutationsTotal     *prometheus.CounterVec
	ImportRecordsTotal *prometheus.CounterVec
	SnapshotCacheHits  prometheus.Counter
	SnapshotCacheMiss  prometheus.Counter
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardrail",
				Name:      "evaluations_total",
				Help:      "Total policy evaluations",
			},
			[]string{"result"}, // result=matched/unmatched
		),
		EvaluationDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "guardrail",
				Name:      "evaluation_duration_seconds",
				Help:      "Policy evaluation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		MutationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardrail",
				Name:      "guideline_mutations_total",
				Help:      "Total guideline mutations by operation",
			},
			[]string{"operation"}, // operation=create/update/toggle/delete/import
		),
		ImportRecordsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardrail",
				Name:      "import_records_total",
				Help:      "Total import records by outcome",
			},
			[]string{"outcome"}, // outcome=imported/failed
		),
		SnapshotCacheHits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "guardrail",
				Name:      "snapshot_cache_hits_total",
				Help:      "Evaluation snapshot cache hits",
			},
		),
		SnapshotCacheMiss: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "guardrail",
				Name:      "snapshot_cache_misses_total",
				Help:      "Evaluation snapshot cache misses",
			},
		),
	}
}
