package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoedit",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autoedit",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, stageDuration)
}
