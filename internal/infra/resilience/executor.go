// Package resilience protects calls to unreliable external dependencies.
//
// Every outbound call runs through two layers:
//   - Retry with exponential backoff and additive jitter, driven by an
//     error classifier (transient vs. rate-limited vs. permanent)
//   - A circuit breaker per dependency class, shared by all concurrent
//     requests exercising that class
//
// The breaker wraps the whole retry sequence, so one exhausted sequence
// counts as exactly one failure toward the trip threshold.
//
// # Quick Start
//
//	exec := resilience.NewExecutor(resilience.DefaultConfig, nil, slog.Default())
//	out, err := exec.Do(ctx, "mail-api", func(ctx context.Context) (map[string]any, error) {
//	    return client.PostJSON(ctx, url, payload)
//	})
package resilience

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// UsageGate limits calls against a daily budget. Allow rejects before the
// dependency is invoked; RecordCall charges one call per attempt.
type UsageGate interface {
	Allow(ctx context.Context, class string) error
	RecordCall(ctx context.Context, class string)
}

// Executor owns the per-dependency-class circuits and runs operations under
// retry + circuit protection. One instance serves the whole process, so every
// request exercising a class shares that class's breaker.
type Executor struct {
	cfg    Config
	engine *Engine
	gate   UsageGate // optional
	log    *slog.Logger

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[map[string]any]
}

// NewExecutor creates an executor. gate may be nil when no budget applies.
func NewExecutor(cfg Config, gate UsageGate, log *slog.Logger) *Executor {
	return &Executor{
		cfg:      cfg,
		engine:   NewEngine(cfg, log),
		gate:     gate,
		log:      log.With("component", "resilience"),
		breakers: make(map[string]*gobreaker.CircuitBreaker[map[string]any]),
	}
}

// Do runs op for the given dependency class. Calls rejected by an open
// circuit fail fast with CIRCUIT_OPEN and never invoke op or consume retry
// budget.
func (x *Executor) Do(ctx context.Context, class string, op Operation) (map[string]any, error) {
	if x.gate != nil {
		if err := x.gate.Allow(ctx, class); err != nil {
			callsTotal.WithLabelValues(class, "over_budget").Inc()
			return nil, err
		}
	}

	out, err := x.breaker(class).Execute(func() (map[string]any, error) {
		return x.engine.Do(ctx, class, x.charged(class, op))
	})
	if err != nil {
		if circuitOpen(err) {
			callsTotal.WithLabelValues(class, "rejected").Inc()
			return nil, domain.NewCodedError(domain.CodeCircuitOpen,
				"%s unavailable: circuit open", class)
		}
		callsTotal.WithLabelValues(class, "error").Inc()
		return nil, err
	}
	callsTotal.WithLabelValues(class, "ok").Inc()
	return out, nil
}

// charged wraps op so every attempt is counted against the class budget.
func (x *Executor) charged(class string, op Operation) Operation {
	if x.gate == nil {
		return op
	}
	return func(ctx context.Context) (map[string]any, error) {
		x.gate.RecordCall(ctx, class)
		return op(ctx)
	}
}

// breaker returns the circuit for class, creating it on first use.
func (x *Executor) breaker(class string) *gobreaker.CircuitBreaker[map[string]any] {
	x.mu.RLock()
	cb, ok := x.breakers[class]
	x.mu.RUnlock()
	if ok {
		return cb
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if cb, ok = x.breakers[class]; ok {
		return cb
	}
	cb = newBreaker(class, x.cfg, x.log)
	x.breakers[class] = cb
	return cb
}

// States reports the current circuit state per known dependency class.
func (x *Executor) States() map[string]string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	states := make(map[string]string, len(x.breakers))
	for class, cb := range x.breakers {
		states[class] = cb.State().String()
	}
	return states
}
