package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Instruments bundles the runtime-wide observability dependencies.
type Instruments struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Settings identifies the process to the telemetry backends and selects where spans go.
type Settings struct {
	ServiceName string
	Environment string
	LogLevel    string

	// TraceEndpoint is the OTLP/HTTP collector host:port. When empty, spans are printed in
	// the local environment and dropped elsewhere.
	TraceEndpoint    string
	TraceInsecure    bool
	TraceSampleRatio float64

	// Output receives logs and, without a collector, local spans. Defaults to stdout.
	Output io.Writer
}

// Init configures slog, OpenTelemetry tracing, and meters for the process.
// The returned shutdown function flushes pending spans and metrics.
func Init(ctx context.Context, settings Settings) (*Instruments, func(context.Context) error, error) {
	settings = settings.withDefaults()
	logger := newLogger(settings)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", settings.ServiceName),
			attribute.String("deployment.environment", settings.Environment),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.TraceSampleRatio))),
	}
	exporter, sink, err := newSpanExporter(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	if exporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}
	logger.Info("tracing configured",
		slog.String("sink", sink),
		slog.Float64("sample_ratio", settings.TraceSampleRatio),
	)

	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Service metrics are scraped through Prometheus; otel meters feed span-adjacent counters
	// that are read on demand.
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewManualReader()),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(meterProvider.Shutdown(ctx), tracerProvider.Shutdown(ctx))
	}
	return &Instruments{
		Logger:         logger,
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
	}, shutdown, nil
}

// Tracer returns a named tracer from the configured provider.
func (i *Instruments) Tracer(name string) trace.Tracer {
	if i == nil || i.TracerProvider == nil {
		return otel.Tracer(name)
	}
	return i.TracerProvider.Tracer(name)
}

// Meter returns a named meter from the configured provider.
func (i *Instruments) Meter(name string) metric.Meter {
	if i == nil || i.MeterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(name)
	}
	return i.MeterProvider.Meter(name)
}

func (s Settings) withDefaults() Settings {
	if s.Environment == "" {
		s.Environment = "local"
	}
	if s.TraceSampleRatio <= 0 || s.TraceSampleRatio > 1 {
		s.TraceSampleRatio = 1
	}
	if s.Output == nil {
		s.Output = os.Stdout
	}
	s.TraceEndpoint = strings.TrimSpace(s.TraceEndpoint)
	return s
}

func newLogger(settings Settings) *slog.Logger {
	handler := slog.NewJSONHandler(settings.Output, &slog.HandlerOptions{Level: ParseLevel(settings.LogLevel), AddSource: true})
	logger := slog.New(handler).With(
		slog.String("service", settings.ServiceName),
		slog.String("env", settings.Environment),
	)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps debug, warn and error onto slog levels; anything else is info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newSpanExporter picks the span sink: the OTLP collector when one is configured, stdout for
// local runs, nothing otherwise. The returned name is logged.
func newSpanExporter(ctx context.Context, settings Settings) (sdktrace.SpanExporter, string, error) {
	if settings.TraceEndpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(settings.TraceEndpoint)}
		if settings.TraceInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, "", err
		}
		return exporter, "otlp:" + settings.TraceEndpoint, nil
	}
	if settings.Environment != "local" {
		return nil, "none", nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(settings.Output))
	if err != nil {
		return nil, "", err
	}
	return exporter, "stdout", nil
}
