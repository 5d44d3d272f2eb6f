package resilience

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker/v2"
)

// newBreaker builds the circuit for one dependency class. MaxRequests=1
// admits a single probe while half-open; the circuit trips on the Nth
// consecutive failure and stays open for the cooldown.
func newBreaker(class string, cfg Config, log *slog.Logger) *gobreaker.CircuitBreaker[map[string]any] {
	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = DefaultConfig.BreakerThreshold
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = DefaultConfig.BreakerCooldown
	}

	return gobreaker.NewCircuitBreaker[map[string]any](gobreaker.Settings{
		Name:        class,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// An abandoned request says nothing about dependency health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(stateValue(to))
			log.Warn("circuit state changed",
				"class", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// circuitOpen reports whether err is the breaker rejecting the call without
// running it.
func circuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
