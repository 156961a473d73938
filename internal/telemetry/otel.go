package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jdillenkofer/signet/internal/settings"
)

const serviceName = "signet"

func noopShutdown(context.Context) error {
	return nil
}

// SetupOTelSDK installs a tracer provider exporting to the exporter chosen in
// the settings and returns its shutdown func, which may be called repeatedly.
// Without an exporter the global no-op provider stays in place.
func SetupOTelSDK(ctx context.Context, s *settings.Settings) (func(context.Context) error, error) {
	exporter, err := newSpanExporter(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s span exporter: %w", s.OtelExporter(), err)
	}
	if exporter == nil {
		return noopShutdown, nil
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(newResource(ctx)),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(tracerProvider)

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			err = tracerProvider.Shutdown(ctx)
		})
		return err
	}, nil
}

// newSpanExporter returns nil when tracing is disabled. The exporter names are
// validated when the settings are loaded.
func newSpanExporter(ctx context.Context, s *settings.Settings) (trace.SpanExporter, error) {
	switch s.OtelExporter() {
	case settings.OtelExporterOtlp:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if s.OtelEndpoint() != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(s.OtelEndpoint()))
		}
		return otlptracehttp.New(ctx, opts...)
	case settings.OtelExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case settings.OtelExporterNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown otel exporter %q", s.OtelExporter())
}

// newResource falls back to the partial resource when some detectors fail.
func newResource(ctx context.Context) *resource.Resource {
	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithOS(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Could not create complete resource for OpenTelemetry", "error", err)
	}
	if res == nil {
		res = resource.Default()
	}
	return res
}
