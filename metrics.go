package banditpool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observation results used as the "result" label of observationsTotal.
const (
	resultObserved  = "observed"
	resultExhausted = "exhausted"
	resultError     = "error"
	resultInvalid   = "invalid"
	resultStale     = "stale"
)

var (
	// observationsTotal counts observations by result.
	// Labels: "observed", "exhausted", "error", "invalid", "stale"
	observationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banditpool_observations_total",
		Help: "Total observations integrated into bandit pools by result",
	}, []string{"result"})

	clampedValuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banditpool_clamped_values_total",
		Help: "Objective values clamped into the evaluator's declared range",
	})

	armsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banditpool_arms_created_total",
		Help: "Arms created across all bandit pools",
	})

	armsDestroyedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banditpool_arms_destroyed_total",
		Help: "Arms destroyed across all bandit pools",
	})

	inFlightEvaluations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "banditpool_in_flight_evaluations",
		Help: "Evaluations dispatched and not yet observed",
	})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "banditpool_evaluation_duration_seconds",
		Help:    "Evaluator call duration",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
)
