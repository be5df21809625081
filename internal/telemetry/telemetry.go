// Package telemetry wires OpenTelemetry tracing to an OTLP collector.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"tableside/internal/config"
)

// Shutdown flushes and stops the tracer provider
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a global tracer provider exporting to cfg.OTLPEndpoint.
// Without an endpoint tracing stays disabled and the returned Shutdown does
// nothing. Exporter errors are logged, never fatal.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) Shutdown {
	if cfg.OTLPEndpoint == "" {
		return noop
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		logger.Error("otel exporter", "error", err)
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		logger.Warn("otel resource", "error", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	logger.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)

	return provider.Shutdown
}
