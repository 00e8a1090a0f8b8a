// Package telemetry configures OpenTelemetry tracing for kerf runs.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies kerf in exported traces.
const ServiceName = "kerf"

// Settings are read from KERF_OTEL_* environment variables by
// (*job.Config).ApplyEnv.
type Settings struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Setup installs a global tracer provider exporting to s.Endpoint.
//
// Tracing is opt-in: with no endpoint, or Enabled false, Setup returns a
// no-op shutdown function and registers nothing. The returned function
// flushes pending spans and should be deferred by the caller.
func Setup(ctx context.Context, s Settings) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !s.Enabled || s.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(s.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(ServiceName)))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Tracer returns the tracer for a kerf component, e.g. "pipeline".
func Tracer(component string) trace.Tracer {
	return otel.Tracer(ServiceName + "/" + component)
}
