// Package tracing provides OpenTelemetry tracing integration.
//
// Monitoring runs and per-source checks create spans through the global
// tracer; the worker installs a tracer provider at startup and the ops
// HTTP server carries the tracing middleware.
//
// Example usage:
//
//	import "policy-watch/internal/observability/tracing"
//
//	func main() {
//	    shutdown, err := tracing.InitTracerProvider(context.Background())
//	    if err != nil { ... }
//	    defer shutdown(context.Background())
//	}
//
//	func check(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "monitor.check")
//	    defer span.End()
//	}
package tracing
