package buildd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildersByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "soyuz",
		Subsystem: "buildd",
		Name:      "builders",
		Help:      "Number of builders by state (as of the last scan)",
	}, []string{"state"})

	queueSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "soyuz",
		Subsystem: "buildd",
		Name:      "queue_size",
		Help:      "Number of waiting build queue entries by architecture",
	}, []string{"arch"})

	dispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soyuz",
		Subsystem: "buildd",
		Name:      "dispatches_total",
		Help:      "Build dispatches by outcome",
	}, []string{"outcome"})

	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soyuz",
		Subsystem: "buildd",
		Name:      "results_total",
		Help:      "Handled build results by status",
	}, []string{"result"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "soyuz",
		Subsystem: "buildd",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full scan of all builders",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)
