package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/SammyTourani/Pulse-sub001/internal/infra/resilience"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret is required")
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	applyResilienceDefaults(&cfg.Resilience)

	seen := make(map[string]bool, len(cfg.Bricks))
	for i := range cfg.Bricks {
		b := &cfg.Bricks[i]
		if b.Name == "" {
			return nil, fmt.Errorf("bricks[%d]: name is required", i)
		}
		if b.URL == "" {
			return nil, fmt.Errorf("brick %q: url is required", b.Name)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("brick %q configured twice", b.Name)
		}
		seen[b.Name] = true

		if b.Dependency == "" {
			b.Dependency = b.Name
		}
		if b.Timeout == 0 {
			b.Timeout = 30 * time.Second
		}
	}

	return &cfg, nil
}

// applyResilienceDefaults fills unset retry and breaker knobs. A zero
// max_retries reads as unset; set it to -1 to disable retries.
func applyResilienceDefaults(rc *resilience.Config) {
	def := resilience.DefaultConfig
	if rc.MaxRetries == 0 {
		rc.MaxRetries = def.MaxRetries
	}
	if rc.MaxRetries < 0 {
		rc.MaxRetries = 0
	}
	if rc.BaseDelay == 0 {
		rc.BaseDelay = def.BaseDelay
	}
	if rc.MaxDelay == 0 {
		rc.MaxDelay = def.MaxDelay
	}
	if rc.JitterFactor == 0 {
		rc.JitterFactor = def.JitterFactor
	}
	if rc.RateLimitBaseDelay == 0 {
		rc.RateLimitBaseDelay = def.RateLimitBaseDelay
	}
	if rc.RateLimitMaxDelay == 0 {
		rc.RateLimitMaxDelay = def.RateLimitMaxDelay
	}
	if rc.BreakerThreshold == 0 {
		rc.BreakerThreshold = def.BreakerThreshold
	}
	if rc.BreakerCooldown == 0 {
		rc.BreakerCooldown = def.BreakerCooldown
	}
}
