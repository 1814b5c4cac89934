package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Claimed           prometheus.Counter
	Outcomes          *prometheus.CounterVec
	SummarizeDuration prometheus.Histogram
	LoopErrors        prometheus.Counter
	Swept             *prometheus.CounterVec
}

// NewMetrics registers the worker collectors on reg. A nil reg gets a
// private registry, which keeps tests and embedded use isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		Claimed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "worker",
			Name:      "claimed_total",
			Help:      "Notes claimed for processing.",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "worker",
			Name:      "outcomes_total",
			Help:      "Processed notes by outcome.",
		}, []string{"outcome"}),
		SummarizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notes",
			Subsystem: "worker",
			Name:      "summarize_duration_seconds",
			Help:      "Time spent summarizing one note.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		LoopErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "worker",
			Name:      "loop_errors_total",
			Help:      "Store errors seen by the poll loop (fetch or claim).",
		}),
		Swept: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "sweeper",
			Name:      "recovered_total",
			Help:      "Stale processing notes recovered by the sweeper.",
		}, []string{"outcome"}),
	}
}
