// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const (
	DefaultEndpoint    = "localhost:4318"
	DefaultServiceName = "tabletalk"
)

// Config controls tracing. Tracing is off unless Enabled is set.
type Config struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init installs an OTLP/HTTP exporting tracer provider. When tracing is
// disabled the global no-op provider stays in place.
func Init(ctx context.Context, c Config, logger *slog.Logger) (ShutdownFunc, error) {
	if !c.Enabled {
		logger.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", "endpoint", c.Endpoint, "service", c.ServiceName)
	return tp.Shutdown, nil
}
