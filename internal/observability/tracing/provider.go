package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracerProvider installs the global tracer provider and W3C trace
// context propagator. Exporters are attached via the deployment's
// standard OTEL_* environment configuration; without one, spans are
// recorded but dropped, which keeps span-derived attributes available to
// the middleware at no cost.
//
// The returned shutdown function flushes pending spans and must be called
// on process exit.
func InitTracerProvider(ctx context.Context) (func(context.Context) error, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", "policy-watch"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
