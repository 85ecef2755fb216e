package worker

import (
	"fmt"
	"log/slog"
	"time"

	"policy-watch/internal/pkg/config"
)

// WorkerConfig holds the configuration for the monitoring worker.
// It controls the cron schedule, timezone, per-source check timeout,
// scrape parallelism, and the health server port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have defaults and validation rules so the worker can start
// safely even with invalid or missing configuration.
type WorkerConfig struct {
	// CronSchedule is the cron expression for the monitoring run.
	// Format: "minute hour day month weekday"
	// Example: "0 6 * * *" (every day at 6:00)
	// Default: "0 6 * * *"
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Example: "UTC", "America/Chicago"
	// Default: "UTC"
	Timezone string

	// ScrapeParallelism is the number of sources checked concurrently
	// during the fetch phase of a run. 1 preserves strictly sequential
	// checking.
	// Range: 1-16
	// Default: 1
	ScrapeParallelism int

	// CheckTimeout is the maximum duration for a single source check
	// (fetch, parse, and extraction). After this timeout the check is
	// cancelled and recorded as a per-source failure.
	// Default: 2 minutes
	CheckTimeout time.Duration

	// HealthPort is the port for the health and metrics HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production defaults:
// a daily 6:00 UTC run, sequential scraping, a 2-minute per-source
// timeout, and the health server on 9091.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:      "0 6 * * *",
		Timezone:          "UTC",
		ScrapeParallelism: 1,
		CheckTimeout:      2 * time.Minute,
		HealthPort:        9091,
	}
}

// Validate checks the configuration values using the reusable validators
// from internal/pkg/config. All field errors are collected and returned
// together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("cron schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateIntRange(c.ScrapeParallelism, 1, 16); err != nil {
		errors = append(errors, fmt.Errorf("scrape parallelism: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.CheckTimeout); err != nil {
		errors = append(errors, fmt.Errorf("check timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to defaults on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use the default, log a warning, increment metrics
//  5. Never return an error - always return a valid configuration
//
// Environment variables:
//   - MONITOR_CRON_SCHEDULE: Cron expression (default: "0 6 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - SCRAPE_PARALLELISM: Integer 1-16 (default: 1)
//   - CHECK_TIMEOUT: Duration string, e.g. "2m" (default: 2 minutes)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("MONITOR_CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("cron_schedule")
		metrics.RecordFallback("cron_schedule", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CronSchedule"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("SCRAPE_PARALLELISM", cfg.ScrapeParallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 16)
	})
	cfg.ScrapeParallelism = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("scrape_parallelism")
		metrics.RecordFallback("scrape_parallelism", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "ScrapeParallelism"),
				slog.String("warning", warning))
		}
	}

	// Check timeout bounded to 10s-30m so a bad value cannot stall a run.
	result = config.LoadEnvDuration("CHECK_TIMEOUT", cfg.CheckTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 30*time.Minute)
	})
	cfg.CheckTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("check_timeout")
		metrics.RecordFallback("check_timeout", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CheckTimeout"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	// Always return a valid config (fail-open strategy).
	return &cfg, nil
}
