// Package dispatch routes authenticated requests to their registered brick
// and bounds each invocation with a deadline.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// DefaultTimeout bounds bricks that register without their own deadline.
const DefaultTimeout = 30 * time.Second

// Unit is one business-logic unit. Handle receives the flattened input and
// must honor ctx cancellation; the dispatcher stops waiting at the deadline
// even if the unit does not.
type Unit interface {
	Name() string
	Handle(ctx context.Context, input map[string]any) (map[string]any, error)
}

type entry struct {
	unit    Unit
	timeout time.Duration
}

type Dispatcher struct {
	mu      sync.RWMutex
	entries map[string]entry
	log     *slog.Logger
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		entries: make(map[string]entry),
		log:     log.With("component", "dispatch"),
	}
}

// Register adds a unit under its own name. A timeout of zero means
// DefaultTimeout. Registering the same name twice replaces the old unit.
func (d *Dispatcher) Register(unit Unit, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d.mu.Lock()
	d.entries[unit.Name()] = entry{unit: unit, timeout: timeout}
	d.mu.Unlock()
}

// Bricks returns the registered brick names.
func (d *Dispatcher) Bricks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	return names
}

// Dispatch looks up the brick and invokes it with the flattened input.
// The call blocks until the unit finishes or its deadline passes; on the
// deadline the request fails with DISPATCH_TIMEOUT while the unit's
// goroutine is left to observe its canceled context and wind down.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID, brick string, input map[string]any) (map[string]any, error) {
	d.mu.RLock()
	ent, ok := d.entries[brick]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.NewCodedError(domain.CodeWorkflowNotFound, "unknown brick %q", brick)
	}

	flat := NormalizeInput(input)

	tctx, cancel := context.WithTimeout(ctx, ent.timeout)
	defer cancel()

	type result struct {
		out map[string]any
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		out, err := ent.unit.Handle(tctx, flat)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			d.log.Error("brick timed out",
				"requestId", requestID,
				"brick", brick,
				"timeout", ent.timeout,
				"elapsed", time.Since(start))
			return nil, domain.NewCodedError(domain.CodeDispatchTimeout,
				"brick %q did not finish within %s", brick, ent.timeout)
		}
		// The client went away; nobody is waiting for this response.
		return nil, tctx.Err()
	}
}
