package health

import (
	"context"
	"sync"
	"time"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

const (
	checkTimeout = 2 * time.Second
	reportMaxAge = 10 * time.Second
	openState    = "open"
)

// Monitor aggregates health status from the gateway's components.
type Monitor struct {
	mu         sync.Mutex
	checks     map[string]Check
	circuits   func() map[string]string
	started    time.Time
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a monitor with no registered checks.
func NewMonitor() *Monitor {
	return &Monitor{
		checks:  make(map[string]Check),
		started: time.Now(),
	}
}

// AddCheck registers a named dependency probe. Call before serving.
func (m *Monitor) AddCheck(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// SetCircuits wires the circuit-state snapshot source.
func (m *Monitor) SetCircuits(fn func() map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuits = fn
}

// CheckHealth runs all probes and aggregates a report. Reports are cached
// briefly so probes are not spammed by load balancers.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < reportMaxAge && m.lastReport.Components != nil {
		return m.lastReport
	}

	report := Report{
		SystemStatus:  StatusHealthy,
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Components:    make(map[string]ComponentHealth, len(m.checks)),
		Circuits:      map[string]string{},
	}

	for name, check := range m.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()

		if err != nil {
			report.Components[name] = ComponentHealth{Status: StatusDegraded, Detail: err.Error()}
			continue
		}
		report.Components[name] = ComponentHealth{Status: StatusHealthy}
	}

	open := 0
	if m.circuits != nil {
		report.Circuits = m.circuits()
		for _, state := range report.Circuits {
			if state == openState {
				open++
			}
		}
	}

	// Worst case wins: a failing component or an open circuit degrades the
	// gateway; every dependency circuit open means it cannot do useful work.
	for _, c := range report.Components {
		if c.Status != StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
	}
	if open > 0 {
		report.SystemStatus = StatusDegraded
	}
	if n := len(report.Circuits); n > 0 && open == n {
		report.SystemStatus = StatusCritical
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
