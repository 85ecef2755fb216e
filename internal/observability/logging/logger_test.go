package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "default log level (info)", logLevel: ""},
		{name: "debug log level", logLevel: "debug"},
		{name: "invalid log level defaults to info", logLevel: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)

			logger := NewLogger()
			assert.NotNil(t, logger, "logger should not be nil")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw      string
		expected slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.raw), "parseLevel(%q)", tt.raw)
	}
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	logger := WithRunID(base, "run-abc-123")
	logger.Info("check complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-abc-123", entry["run_id"])
	assert.Equal(t, "check complete", entry["msg"])
}

func TestWithRunID_Empty(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	logger := WithRunID(base, "")
	logger.Info("no run context")

	assert.NotContains(t, buf.String(), "run_id", "empty run ID should not be attached")
}

func TestFromContext(t *testing.T) {
	t.Run("with logger in context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		got := FromContext(ctx)
		got.Info("through context")
		assert.Contains(t, buf.String(), "through context")
	})

	t.Run("without logger in context", func(t *testing.T) {
		got := FromContext(context.Background())
		assert.Equal(t, slog.Default(), got, "should fall back to default logger")
	})

	t.Run("with invalid value in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), loggerContextKey, "not a logger")
		got := FromContext(ctx)
		assert.Equal(t, slog.Default(), got, "should fall back to default logger")
	})
}

func TestLogger_JSONStructure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("source checked",
		"source", "state-ops-memos",
		"outcome", "changed",
		"items_added", 2,
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "source checked", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "state-ops-memos", entry["source"])
	assert.Equal(t, float64(2), entry["items_added"])
	assert.NotEmpty(t, entry["time"])
}
