package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Splitter Prometheus metrics.
var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsplitter",
			Name:      "analyses_total",
			Help:      "Total number of page analyses",
		},
		[]string{"strategy", "outcome"}, // outcome: "success" / "fallback"
	)

	InvoicesPerAnalysis = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docsplitter",
			Name:      "invoices_per_analysis",
			Help:      "Number of invoice groups produced per analysis",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	PairDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsplitter",
			Name:      "pair_decisions_total",
			Help:      "Adjacent page comparisons by verdict",
		},
		[]string{"mode", "verdict"}, // verdict: "same" / "different" / "failed"
	)

	ContainerGroupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docsplitter",
			Name:      "container_groups_total",
			Help:      "Page groups flagged as expense report containers",
		},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsplitter",
			Name:      "model_requests_total",
			Help:      "Total number of model capability requests",
		},
		[]string{"provider", "kind", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsplitter",
			Name:      "model_request_duration_seconds",
			Help:      "Model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"provider", "kind"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			InvoicesPerAnalysis,
			PairDecisionsTotal,
			ContainerGroupsTotal,
			ModelRequestsTotal,
			ModelRequestDuration,
		)
	})
}
