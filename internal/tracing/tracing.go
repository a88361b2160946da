// Package tracing wires OpenTelemetry trace export around provider
// router turns, configured from config.TelemetryConfig.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Config mirrors config.TelemetryConfig without importing it, to avoid
// a package cycle between config and tracing.
type Config struct {
	Enabled     bool
	Endpoint    string
	Protocol    string
	Insecure    bool
	ServiceName string
	Headers     map[string]string
}

// Provider wraps the SDK tracer provider and its shutdown hook.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer oteltrace.Tracer
}

// Noop returns a Provider whose Tracer is the global no-op tracer,
// used when telemetry is disabled.
func Noop() *Provider {
	return &Provider{tracer: otel.Tracer("drost/noop")}
}

// New builds a TracerProvider exporting to an OTLP/HTTP collector.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing: telemetry enabled but endpoint is empty")
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "drost-gateway"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	client := otlptracehttp.NewClient(opts...)
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("tracing: new exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: new resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer("drost/router")}, nil
}

// Shutdown flushes and stops the exporter, with a bounded timeout.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// StartTurnSpan starts a span around one provider-router turn attempt.
func (p *Provider) StartTurnSpan(ctx context.Context, provider, model string, attempt int) (context.Context, oteltrace.Span) {
	return p.tracer.Start(ctx, "router.turn",
		oteltrace.WithAttributes(
			attribute.String("drost.provider", provider),
			attribute.String("drost.model", model),
			attribute.Int("drost.attempt", attempt),
		),
	)
}

// RecordFailure annotates the active span with a classified failure.
func RecordFailure(span oteltrace.Span, class string, retryAfterSeconds int) {
	span.SetAttributes(
		attribute.String("drost.failure_class", class),
		attribute.Int("drost.retry_after_seconds", retryAfterSeconds),
	)
}
