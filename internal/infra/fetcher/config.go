package fetcher

import (
	"fmt"
	"time"

	"policy-watch/internal/pkg/config"
)

// Config holds configuration for the shared page fetcher.
type Config struct {
	// UserAgent identifies this monitor to the sites it checks.
	// Government webmasters occasionally block opaque agents, so the default
	// carries a contact hint.
	UserAgent string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxBodySize caps the fetched body to prevent memory exhaustion.
	MaxBodySize int64

	// PerHostRPS limits request rate per target host (politeness).
	PerHostRPS float64

	// PerHostBurst is the burst size for the per-host limiter.
	PerHostBurst int
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:    "PolicyWatchBot/1.0 (+https://policy-watch.example.org/about)",
		Timeout:      30 * time.Second,
		MaxBodySize:  10 * 1024 * 1024, // 10MB
		PerHostRPS:   1.0,
		PerHostBurst: 2,
	}
}

// LoadConfigFromEnv loads fetcher configuration from environment variables
// with fallback to defaults on invalid values.
//
// Environment variables:
//   - FETCH_USER_AGENT: User-Agent header value
//   - FETCH_TIMEOUT: Duration string, e.g. "30s" (range 1s-5m)
//   - FETCH_MAX_BODY_SIZE: Body cap in bytes (range 1KB-100MB)
//   - FETCH_PER_HOST_RPS: Requests per second per host (range 1-10, integer)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.UserAgent = config.LoadEnvString("FETCH_USER_AGENT", cfg.UserAgent)

	result := config.LoadEnvDuration("FETCH_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 5*time.Minute)
	})
	cfg.Timeout = result.Value.(time.Duration)

	result = config.LoadEnvInt("FETCH_MAX_BODY_SIZE", int(cfg.MaxBodySize), func(v int) error {
		return config.ValidateIntRange(v, 1024, 100*1024*1024)
	})
	cfg.MaxBodySize = int64(result.Value.(int))

	result = config.LoadEnvInt("FETCH_PER_HOST_RPS", int(cfg.PerHostRPS), func(v int) error {
		return config.ValidateIntRange(v, 1, 10)
	})
	cfg.PerHostRPS = float64(result.Value.(int))

	if cfg.PerHostBurst < 1 {
		return cfg, fmt.Errorf("per-host burst must be at least 1")
	}

	return cfg, nil
}
