package resilience

import (
	"context"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Config defines retry and circuit behavior for all dependency classes.
type Config struct {
	MaxRetries         int           `yaml:"max_retries"`
	BaseDelay          time.Duration `yaml:"base_delay"`
	MaxDelay           time.Duration `yaml:"max_delay"`
	JitterFactor       float64       `yaml:"jitter_factor"`
	RateLimitBaseDelay time.Duration `yaml:"rate_limit_base_delay"`
	RateLimitMaxDelay  time.Duration `yaml:"rate_limit_max_delay"`
	BreakerThreshold   uint32        `yaml:"breaker_threshold"`
	BreakerCooldown    time.Duration `yaml:"breaker_cooldown"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries:         3,
	BaseDelay:          500 * time.Millisecond,
	MaxDelay:           10 * time.Second,
	JitterFactor:       0.1,
	RateLimitBaseDelay: 2 * time.Second,
	RateLimitMaxDelay:  60 * time.Second,
	BreakerThreshold:   5,
	BreakerCooldown:    60 * time.Second,
}

// backoffFor picks the delay curve for the error being retried. Throttling
// gets a wider window than a flaky socket.
func (c Config) backoffFor(err error) BackoffParams {
	if Classify(err) == ClassRateLimited {
		return BackoffParams{
			BaseDelay:    c.RateLimitBaseDelay,
			MaxDelay:     c.RateLimitMaxDelay,
			JitterFactor: c.JitterFactor,
		}
	}
	return BackoffParams{
		BaseDelay:    c.BaseDelay,
		MaxDelay:     c.MaxDelay,
		JitterFactor: c.JitterFactor,
	}
}

// Operation is one dependency call producing a JSON-shaped result.
type Operation func(ctx context.Context) (map[string]any, error)

// Engine drives bounded retry loops around dependency calls.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// NewEngine creates a retry engine.
func NewEngine(cfg Config, log *slog.Logger) *Engine {
	return &Engine{cfg: cfg, log: log.With("component", "retry")}
}

// Do executes op with up to MaxRetries retries after the first attempt.
// Non-retryable errors stop the loop immediately; the last error propagates
// unchanged. Backoff sleeps run on the calling goroutine only and abort when
// ctx is cancelled.
func (e *Engine) Do(ctx context.Context, class string, op Operation) (map[string]any, error) {
	attempts := e.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return retry.NewWithData[map[string]any](
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.RetryIf(Retryable),
		// n is the 1-based retry number; the curve is indexed by the
		// zero-based attempt that just failed.
		retry.DelayType(func(n uint, err error, _ retry.DelayContext) time.Duration {
			return e.cfg.backoffFor(err).Delay(int(n) - 1)
		}),
		retry.OnRetry(func(n uint, err error) {
			retriesTotal.WithLabelValues(class).Inc()
			e.log.Warn("call failed, retrying",
				"class", class,
				"attempt", n+1,
				"error", err)
		}),
		retry.LastErrorOnly(true),
	).Do(func() (map[string]any, error) {
		return op(ctx)
	})
}
