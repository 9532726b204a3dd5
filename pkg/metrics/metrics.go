// Package metrics exposes Prometheus instrumentation for the similarity
// store's insert/query/top-N/remove operations and the parameter planner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// opLatency measures operation latency by name and outcome.
	// Labels: op (insert, query, top_n, remove), status (ok, error)
	opLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dupefind",
		Subsystem: "store",
		Name:      "op_latency_seconds",
		Help:      "Similarity store operation latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"op", "status"})

	// candidatesReturned tracks the number of LSH candidates surfaced per
	// query before validation.
	candidatesReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dupefind",
		Subsystem: "lsh",
		Name:      "candidates_returned",
		Help:      "Number of candidate documents returned by an LSH query before validation",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})

	// validationDropped counts candidates removed during true-Jaccard
	// validation, by reason.
	// Labels: reason (below_threshold, exact_part_mismatch)
	validationDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dupefind",
		Subsystem: "store",
		Name:      "validation_dropped_total",
		Help:      "Total candidates dropped during query validation, by reason",
	}, []string{"reason"})

	// plannerWarnings counts non-fatal planner warnings by kind.
	plannerWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dupefind",
		Subsystem: "planner",
		Name:      "warnings_total",
		Help:      "Total planner warnings, by kind",
	}, []string{"kind"})

	// plannerResolvedK tracks the final K chosen by the planner.
	plannerResolvedK = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dupefind",
		Subsystem: "planner",
		Name:      "resolved_k",
		Help:      "Distribution of the number of hash functions the planner settled on",
		Buckets:   []float64{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384},
	})
)

// RecordOpLatency records the latency of a store operation.
func RecordOpLatency(op string, success bool, durationSec float64) {
	status := "ok"
	if !success {
		status = "error"
	}
	opLatency.WithLabelValues(op, status).Observe(durationSec)
}

// RecordCandidatesReturned records how many LSH candidates a query surfaced
// before validation.
func RecordCandidatesReturned(n int) {
	candidatesReturned.Observe(float64(n))
}

// RecordValidationDropped records a candidate dropped during validation.
func RecordValidationDropped(reason string) {
	validationDropped.WithLabelValues(reason).Inc()
}

// RecordPlannerWarning records a non-fatal planner warning.
func RecordPlannerWarning(kind string) {
	plannerWarnings.WithLabelValues(kind).Inc()
}

// RecordPlannerResolvedK records the K the planner settled on.
func RecordPlannerResolvedK(k int) {
	plannerResolvedK.Observe(float64(k))
}
