package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// retriesTotal counts retry attempts per dependency class
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_dependency_retries_total",
			Help: "Total number of retries against external dependencies",
		},
		[]string{"class"},
	)

	// callsTotal counts protected calls per dependency class and outcome
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_dependency_calls_total",
			Help: "Total number of protected dependency calls",
		},
		[]string{"class", "outcome"},
	)

	// breakerState reports the circuit state per dependency class
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_circuit_state",
			Help: "Circuit state per dependency class (0=closed, 1=half-open, 2=open)",
		},
		[]string{"class"},
	)
)
