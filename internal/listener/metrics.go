package listener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dao_listener",
		Name:      "blocks_applied_total",
		Help:      "Count of blocks fully applied and checkpointed.",
	})

	eventsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dao_listener",
		Name:      "events_applied_total",
		Help:      "Count of domain events applied, by kind.",
	}, []string{"kind"})

	unknownEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dao_listener",
		Name:      "unknown_events_total",
		Help:      "Count of unrecognized event tags skipped.",
	})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dao_listener",
		Name:      "failures_total",
		Help:      "Count of failed block cycles, by error kind.",
	}, []string{"kind"})

	checkpointHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dao_listener",
		Name:      "checkpoint_height",
		Help:      "Height of the last applied block.",
	})

	backoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dao_listener",
		Name:      "backoff_seconds",
		Help:      "Backoff delays observed between retry attempts.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})

	applyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dao_listener",
		Name:      "apply_duration_seconds",
		Help:      "Duration of fetch-extract-apply for one block.",
		Buckets:   prometheus.DefBuckets,
	})
)
