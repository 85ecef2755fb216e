package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// globalTestMetrics is a shared metrics instance for tests to avoid
// duplicate Prometheus registration (promauto registers with the default
// registry at construction).
var globalTestMetrics = NewWorkerMetrics()

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CronSchedule != "0 6 * * *" {
		t.Errorf("Expected CronSchedule '0 6 * * *', got '%s'", config.CronSchedule)
	}

	if config.Timezone != "UTC" {
		t.Errorf("Expected Timezone 'UTC', got '%s'", config.Timezone)
	}

	if config.ScrapeParallelism != 1 {
		t.Errorf("Expected ScrapeParallelism 1, got %d", config.ScrapeParallelism)
	}

	if config.CheckTimeout != 2*time.Minute {
		t.Errorf("Expected CheckTimeout 2m, got %v", config.CheckTimeout)
	}

	if config.HealthPort != 9091 {
		t.Errorf("Expected HealthPort 9091, got %d", config.HealthPort)
	}
}

func TestDefaultConfig_Immutability(t *testing.T) {
	// Each call to DefaultConfig should return a new instance
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	config1.CronSchedule = "30 5 * * *"
	config1.ScrapeParallelism = 8

	if config2.CronSchedule != "0 6 * * *" {
		t.Error("DefaultConfig returned a shared instance instead of a new one")
	}

	if config2.ScrapeParallelism != 1 {
		t.Error("DefaultConfig returned a shared instance instead of a new one")
	}
}

func TestWorkerConfig_Validate_ValidConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got error: %v", err)
	}
}

func TestWorkerConfig_Validate_InvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorkerConfig)
		want   string
	}{
		{
			name:   "invalid cron schedule",
			mutate: func(c *WorkerConfig) { c.CronSchedule = "not a cron" },
			want:   "cron schedule",
		},
		{
			name:   "empty cron schedule",
			mutate: func(c *WorkerConfig) { c.CronSchedule = "" },
			want:   "cron schedule",
		},
		{
			name:   "invalid timezone",
			mutate: func(c *WorkerConfig) { c.Timezone = "Mars/Olympus_Mons" },
			want:   "timezone",
		},
		{
			name:   "parallelism too low",
			mutate: func(c *WorkerConfig) { c.ScrapeParallelism = 0 },
			want:   "scrape parallelism",
		},
		{
			name:   "parallelism too high",
			mutate: func(c *WorkerConfig) { c.ScrapeParallelism = 64 },
			want:   "scrape parallelism",
		},
		{
			name:   "zero check timeout",
			mutate: func(c *WorkerConfig) { c.CheckTimeout = 0 },
			want:   "check timeout",
		},
		{
			name:   "privileged health port",
			mutate: func(c *WorkerConfig) { c.HealthPort = 80 },
			want:   "health port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestWorkerConfig_Validate_CollectsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.CronSchedule = "bad"
	config.ScrapeParallelism = 0
	config.HealthPort = 22

	err := config.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	for _, want := range []string{"cron schedule", "scrape parallelism", "health port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("aggregated error %q missing %q", err.Error(), want)
		}
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}

	defaults := DefaultConfig()
	if config.CronSchedule != defaults.CronSchedule {
		t.Errorf("Expected default CronSchedule, got '%s'", config.CronSchedule)
	}
	if config.Timezone != defaults.Timezone {
		t.Errorf("Expected default Timezone, got '%s'", config.Timezone)
	}
	if config.CheckTimeout != defaults.CheckTimeout {
		t.Errorf("Expected default CheckTimeout, got %v", config.CheckTimeout)
	}
}

func TestLoadConfigFromEnv_ValidOverrides(t *testing.T) {
	t.Setenv("MONITOR_CRON_SCHEDULE", "15 */4 * * *")
	t.Setenv("WORKER_TIMEZONE", "America/Chicago")
	t.Setenv("SCRAPE_PARALLELISM", "4")
	t.Setenv("CHECK_TIMEOUT", "5m")
	t.Setenv("WORKER_HEALTH_PORT", "9191")

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}

	if config.CronSchedule != "15 */4 * * *" {
		t.Errorf("Expected CronSchedule '15 */4 * * *', got '%s'", config.CronSchedule)
	}
	if config.Timezone != "America/Chicago" {
		t.Errorf("Expected Timezone 'America/Chicago', got '%s'", config.Timezone)
	}
	if config.ScrapeParallelism != 4 {
		t.Errorf("Expected ScrapeParallelism 4, got %d", config.ScrapeParallelism)
	}
	if config.CheckTimeout != 5*time.Minute {
		t.Errorf("Expected CheckTimeout 5m, got %v", config.CheckTimeout)
	}
	if config.HealthPort != 9191 {
		t.Errorf("Expected HealthPort 9191, got %d", config.HealthPort)
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MONITOR_CRON_SCHEDULE", "every day at noon")
	t.Setenv("WORKER_TIMEZONE", "Nowhere/Nothing")
	t.Setenv("SCRAPE_PARALLELISM", "-3")
	t.Setenv("CHECK_TIMEOUT", "48h") // above the 30m cap
	t.Setenv("WORKER_HEALTH_PORT", "99999")

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}

	// All fields fall back to defaults under the fail-open strategy.
	defaults := DefaultConfig()
	if config.CronSchedule != defaults.CronSchedule {
		t.Errorf("Expected fallback CronSchedule, got '%s'", config.CronSchedule)
	}
	if config.Timezone != defaults.Timezone {
		t.Errorf("Expected fallback Timezone, got '%s'", config.Timezone)
	}
	if config.ScrapeParallelism != defaults.ScrapeParallelism {
		t.Errorf("Expected fallback ScrapeParallelism, got %d", config.ScrapeParallelism)
	}
	if config.CheckTimeout != defaults.CheckTimeout {
		t.Errorf("Expected fallback CheckTimeout, got %v", config.CheckTimeout)
	}
	if config.HealthPort != defaults.HealthPort {
		t.Errorf("Expected fallback HealthPort, got %d", config.HealthPort)
	}

	if !strings.Contains(logBuf.String(), "Configuration fallback applied") {
		t.Error("expected fallback warnings to be logged")
	}
}

func TestLoadConfigFromEnv_UnparseableDurationFallsBack(t *testing.T) {
	t.Setenv("CHECK_TIMEOUT", "two minutes")

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}

	if config.CheckTimeout != DefaultConfig().CheckTimeout {
		t.Errorf("Expected fallback CheckTimeout, got %v", config.CheckTimeout)
	}
}

func TestLoadConfigFromEnv_ResultAlwaysValid(t *testing.T) {
	t.Setenv("MONITOR_CRON_SCHEDULE", "garbage")
	t.Setenv("SCRAPE_PARALLELISM", "garbage")

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("fail-open config should always validate, got: %v", err)
	}
}
