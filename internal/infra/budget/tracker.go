// Package budget enforces per-dependency-class daily usage limits.
//
// Two trackers exist: MemoryTracker for single-process deployments and
// RedisTracker when several gateway replicas must share one budget. Both
// reset at day rollover and reject with RATE_LIMITED before the dependency
// is invoked.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// Limits caps one dependency class for a single day. Zero means unlimited.
type Limits struct {
	DailyCalls  int64
	DailyTokens int64
}

// UsageStats holds a class's consumption for the current day.
type UsageStats struct {
	Calls       int64
	Tokens      int64
	DailyCalls  int64
	DailyTokens int64
	NextResetAt time.Time
}

// Tracker manages daily usage counters shared by all concurrent requests.
type Tracker interface {
	Allow(ctx context.Context, class string) error
	RecordCall(ctx context.Context, class string)
	RecordTokens(ctx context.Context, class string, tokens int64)
	Usage(ctx context.Context, class string) (UsageStats, error)
}

type classUsage struct {
	calls  int64
	tokens int64
}

// MemoryTracker implements Tracker with in-process counters and a midnight
// reset in the process's local time.
type MemoryTracker struct {
	mu        sync.RWMutex
	limits    map[string]Limits
	usage     map[string]*classUsage
	resetTime time.Time
}

// NewMemoryTracker creates a tracker. Classes absent from limits are
// unlimited.
func NewMemoryTracker(limits map[string]Limits) *MemoryTracker {
	copied := make(map[string]Limits, len(limits))
	for class, lim := range limits {
		copied[class] = lim
	}
	return &MemoryTracker{
		limits:    copied,
		usage:     make(map[string]*classUsage),
		resetTime: nextMidnight(time.Now()),
	}
}

// Allow reports whether class still has budget today. Exhaustion surfaces as
// a RATE_LIMITED error so the caller can answer without touching the
// dependency.
func (t *MemoryTracker) Allow(ctx context.Context, class string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lim, ok := t.limits[class]
	if !ok || (lim.DailyCalls == 0 && lim.DailyTokens == 0) {
		return nil
	}
	if time.Now().After(t.resetTime) {
		// New day; counters reset on the next record.
		return nil
	}
	u, ok := t.usage[class]
	if !ok {
		return nil
	}
	if lim.DailyCalls > 0 && u.calls >= lim.DailyCalls {
		return domain.NewCodedError(domain.CodeRateLimited,
			"daily call budget exhausted for %s", class)
	}
	if lim.DailyTokens > 0 && u.tokens >= lim.DailyTokens {
		return domain.NewCodedError(domain.CodeRateLimited,
			"daily token budget exhausted for %s", class)
	}
	return nil
}

// RecordCall charges one call against the class budget.
func (t *MemoryTracker) RecordCall(ctx context.Context, class string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()
	u := t.usageFor(class)
	u.calls++
	usageGauge.WithLabelValues(class, kindCalls).Set(float64(u.calls))
}

// RecordTokens charges consumed tokens against the class budget.
func (t *MemoryTracker) RecordTokens(ctx context.Context, class string, tokens int64) {
	if tokens <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()
	u := t.usageFor(class)
	u.tokens += tokens
	usageGauge.WithLabelValues(class, kindTokens).Set(float64(u.tokens))
}

// Usage returns usage statistics for a class.
func (t *MemoryTracker) Usage(ctx context.Context, class string) (UsageStats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lim := t.limits[class]
	stats := UsageStats{
		DailyCalls:  lim.DailyCalls,
		DailyTokens: lim.DailyTokens,
		NextResetAt: t.resetTime,
	}
	if u, ok := t.usage[class]; ok && !time.Now().After(t.resetTime) {
		stats.Calls = u.calls
		stats.Tokens = u.tokens
	}
	return stats, nil
}

// Reset clears all usage counters.
func (t *MemoryTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage = make(map[string]*classUsage)
	t.resetTime = nextMidnight(time.Now())
}

func (t *MemoryTracker) usageFor(class string) *classUsage {
	u, ok := t.usage[class]
	if !ok {
		u = &classUsage{}
		t.usage[class] = u
	}
	return u
}

func (t *MemoryTracker) rolloverLocked() {
	if time.Now().After(t.resetTime) {
		t.usage = make(map[string]*classUsage)
		t.resetTime = nextMidnight(time.Now())
	}
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
