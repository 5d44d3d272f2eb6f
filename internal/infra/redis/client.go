package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for usage counters shared across gateway
// replicas.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func usageKey(class, day, kind string) string {
	return fmt.Sprintf("usage:%s:%s:%s", class, day, kind)
}

// IncrUsage atomically adds n to a day-scoped usage counter and refreshes its
// TTL, returning the new value. Keys carry the day, so rollover needs no
// coordinated reset.
func (c *Client) IncrUsage(
	ctx context.Context,
	class, day, kind string,
	n int64,
	ttl time.Duration,
) (int64, error) {
	key := usageKey(class, day, kind)

	pipe := c.rdb.TxPipeline()
	incr := pipe.IncrBy(ctx, key, n)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr usage failed: %w", err)
	}
	return incr.Val(), nil
}

// GetUsage reads a day-scoped usage counter. A missing key is zero usage.
func (c *Client) GetUsage(ctx context.Context, class, day, kind string) (int64, error) {
	val, err := c.rdb.Get(ctx, usageKey(class, day, kind)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage failed: %w", err)
	}
	return strconv.ParseInt(val, 10, 64)
}
