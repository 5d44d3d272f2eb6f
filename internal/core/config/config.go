package config

import (
	"time"

	redisclient "github.com/SammyTourani/Pulse-sub001/internal/infra/redis"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/resilience"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Auth       AuthConfig         `yaml:"auth"`
	Bricks     []BrickConfig      `yaml:"bricks"`
	Resilience resilience.Config  `yaml:"resilience"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
	Retention  RetentionConfig    `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AuthConfig holds the shared-secret settings for request signatures.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BrickConfig holds settings for one registered brick.
type BrickConfig struct {
	Name        string        `yaml:"name"`
	Dependency  string        `yaml:"dependency"` // dependency class; defaults to the brick name
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`      // per-dispatch deadline
	DailyQuota  int64         `yaml:"daily_quota"`  // 0 = unlimited
	DailyTokens int64         `yaml:"daily_tokens"` // 0 = unlimited
}

// RetentionConfig bounds the execution log.
type RetentionConfig struct {
	Period   time.Duration `yaml:"period"`   // 0 = keep forever
	Interval time.Duration `yaml:"interval"` // 0 = derived from period
}
