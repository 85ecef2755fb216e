// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Monitoring-run ID propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "policy-watch/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("version", "1.0"))
//	}
//
//	func runChecks(logger *slog.Logger, runID string) {
//	    logger = logging.WithRunID(logger, runID)
//	    logger.Info("starting checks")
//	}
package logging
