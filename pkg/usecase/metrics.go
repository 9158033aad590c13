package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sequenceNextTotal counts counter increments by result
	sequenceNextTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskledger_sequence_next_total",
		Help: "Counter increments by result",
	}, []string{"result"})

	// sequenceWaitSeconds tracks time spent waiting on and holding a counter lock
	sequenceWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskledger_sequence_wait_seconds",
		Help:    "Counter increment latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})

	sequenceFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskledger_sequence_fallback_total",
		Help: "Non-sequential codes issued after a counter lock timeout",
	})

	// residualRecomputeTotal counts derived state computations by result
	residualRecomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskledger_residual_recompute_total",
		Help: "Residual recomputations by result",
	}, []string{"result"})

	// periodCommitTotal counts period commits by result
	periodCommitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskledger_period_commit_total",
		Help: "Period commits by result",
	}, []string{"result"})

	periodCommitRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskledger_period_commit_rows",
		Help:    "History rows written per period commit",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
	})
)
