package budget

import (
	"context"
	"log/slog"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	redisclient "github.com/SammyTourani/Pulse-sub001/internal/infra/redis"
)

const (
	kindCalls  = "calls"
	kindTokens = "tokens"

	// Counters outlive their day long enough for the status CLI to read
	// yesterday, then expire on their own.
	counterTTL = 48 * time.Hour
)

// RedisTracker implements Tracker on shared day-scoped Redis counters, so
// every gateway replica charges the same budget. Keys carry the UTC day;
// rollover is implicit.
type RedisTracker struct {
	client *redisclient.Client
	limits map[string]Limits
	log    *slog.Logger
}

// NewRedisTracker creates a tracker backed by client.
func NewRedisTracker(client *redisclient.Client, limits map[string]Limits, log *slog.Logger) *RedisTracker {
	copied := make(map[string]Limits, len(limits))
	for class, lim := range limits {
		copied[class] = lim
	}
	return &RedisTracker{
		client: client,
		limits: copied,
		log:    log.With("component", "budget"),
	}
}

// Allow checks today's shared counters against the class limits. Redis
// outages fail open: an unreachable budget store must not take the gateway
// down with it.
func (t *RedisTracker) Allow(ctx context.Context, class string) error {
	lim, ok := t.limits[class]
	if !ok || (lim.DailyCalls == 0 && lim.DailyTokens == 0) {
		return nil
	}

	day := utcDay(time.Now())
	if lim.DailyCalls > 0 {
		calls, err := t.client.GetUsage(ctx, class, day, kindCalls)
		if err != nil {
			t.log.Warn("budget read failed, allowing call", "class", class, "error", err)
			return nil
		}
		if calls >= lim.DailyCalls {
			return domain.NewCodedError(domain.CodeRateLimited,
				"daily call budget exhausted for %s", class)
		}
	}
	if lim.DailyTokens > 0 {
		tokens, err := t.client.GetUsage(ctx, class, day, kindTokens)
		if err != nil {
			t.log.Warn("budget read failed, allowing call", "class", class, "error", err)
			return nil
		}
		if tokens >= lim.DailyTokens {
			return domain.NewCodedError(domain.CodeRateLimited,
				"daily token budget exhausted for %s", class)
		}
	}
	return nil
}

// RecordCall charges one call against today's shared counter.
func (t *RedisTracker) RecordCall(ctx context.Context, class string) {
	day := utcDay(time.Now())
	n, err := t.client.IncrUsage(ctx, class, day, kindCalls, 1, counterTTL)
	if err != nil {
		t.log.Warn("budget charge failed", "class", class, "error", err)
		return
	}
	usageGauge.WithLabelValues(class, kindCalls).Set(float64(n))
}

// RecordTokens charges consumed tokens against today's shared counter.
func (t *RedisTracker) RecordTokens(ctx context.Context, class string, tokens int64) {
	if tokens <= 0 {
		return
	}
	day := utcDay(time.Now())
	n, err := t.client.IncrUsage(ctx, class, day, kindTokens, tokens, counterTTL)
	if err != nil {
		t.log.Warn("budget charge failed", "class", class, "error", err)
		return
	}
	usageGauge.WithLabelValues(class, kindTokens).Set(float64(n))
}

// Usage returns today's shared usage for a class.
func (t *RedisTracker) Usage(ctx context.Context, class string) (UsageStats, error) {
	now := time.Now()
	day := utcDay(now)

	calls, err := t.client.GetUsage(ctx, class, day, kindCalls)
	if err != nil {
		return UsageStats{}, err
	}
	tokens, err := t.client.GetUsage(ctx, class, day, kindTokens)
	if err != nil {
		return UsageStats{}, err
	}

	lim := t.limits[class]
	return UsageStats{
		Calls:       calls,
		Tokens:      tokens,
		DailyCalls:  lim.DailyCalls,
		DailyTokens: lim.DailyTokens,
		NextResetAt: nextUTCMidnight(now),
	}, nil
}

func utcDay(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}
