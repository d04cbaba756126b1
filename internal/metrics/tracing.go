package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

const tracerName = "gridpulse"

// TracerProvider wraps the SDK tracer provider with its shutdown hook. When
// telemetry is disabled it carries no provider and spans are no-ops.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider sets up OTLP span export per the telemetry config and
// installs the provider globally. A disabled config yields a provider whose
// spans never leave the process.
func NewTracerProvider(ctx context.Context, cfg config.TelemetryConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		logger.Debugf("Telemetry disabled, spans will not be exported")
		return &TracerProvider{}, nil
	}

	var client otlptrace.Client
	switch cfg.Protocol {
	case "grpc":
		client = otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	case "http":
		client = otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported telemetry protocol: %s", cfg.Protocol)
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("gridpulse"),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Infof("OTLP trace export enabled (%s -> %s)", cfg.Protocol, cfg.Endpoint)
	return &TracerProvider{provider: tp}, nil
}

// Tracer returns a tracer for pipeline spans.
func (t *TracerProvider) Tracer() trace.Tracer {
	if t.provider == nil {
		return otel.GetTracerProvider().Tracer(tracerName)
	}
	return t.provider.Tracer(tracerName)
}

// Shutdown flushes pending spans. Safe to call when telemetry is disabled.
func (t *TracerProvider) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
