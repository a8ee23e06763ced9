package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "misread_analyses_total",
		Help: "Completed analyses by outcome (ok, degraded, invalid_input, auth_error)",
	}, []string{"outcome"})

	stageDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "misread_stage_degradations_total",
		Help: "Soft stage failures absorbed into degraded results, by stage",
	}, []string{"stage"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "misread_analysis_duration_seconds",
		Help:    "Wall-clock duration of full pipeline runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
