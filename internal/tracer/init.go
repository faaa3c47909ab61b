package tracer

import (
	"context"
	"fmt"

	"vlm-search-agent/internal/config"
	"vlm-search-agent/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracer installs an OTLP HTTP exporter (Jaeger accepts OTLP on 4318) as
// the global tracer provider. Tracing is off unless cfg.Enabled; the returned
// shutdown func is always safe to call.
func InitTracer(cfg config.TracingConfig, environment string, log logger.ILogger) (ShutdownFunc, error) {
	if !cfg.Enabled {
		log.Info("tracer", "tracing disabled (set OTEL_ENABLED=true to enable)", nil)
		return noop, nil
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(environment),
		)),
	)
	otel.SetTracerProvider(tp)

	log.Info("tracer", "tracing enabled", map[string]interface{}{
		"endpoint":     cfg.Endpoint,
		"sample_ratio": cfg.SampleRatio,
	})
	return tp.Shutdown, nil
}
