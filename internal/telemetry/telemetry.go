// internal/telemetry/telemetry.go
package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"libradesk/internal/logger"
)

type Options struct {
	ServiceName string
	Environment string
	Version     string

	Enabled  bool
	Endpoint string
	Insecure bool
	// SampleRatio defaults to 0.1 when zero.
	SampleRatio float64

	// Exporter replaces the OTLP/HTTP span exporter when set.
	Exporter sdktrace.SpanExporter
	// MetricReader replaces the periodic OTLP/HTTP metric reader when set.
	MetricReader sdkmetric.Reader
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs the global tracer and meter providers and the propagators. When tracing is
// disabled the otel no-op provider stays in place.
func Init(ctx context.Context, log *logger.Logger, opts Options) (Shutdown, error) {
	if !opts.Enabled {
		return noop, nil
	}
	if log == nil {
		log = logger.Nop()
	}

	serviceName := strings.TrimSpace(opts.ServiceName)
	if serviceName == "" {
		serviceName = "libradesk"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(opts.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(opts.Environment)),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	exporter := opts.Exporter
	if exporter == nil {
		httpOpts := []otlptracehttp.Option{}
		if ep := strings.TrimSpace(opts.Endpoint); ep != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpoint(ep))
		}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return noop, err
		}
	}

	reader := opts.MetricReader
	if reader == nil {
		metricOpts := []otlpmetrichttp.Option{}
		if ep := strings.TrimSpace(opts.Endpoint); ep != "" {
			metricOpts = append(metricOpts, otlpmetrichttp.WithEndpoint(ep))
		}
		if opts.Insecure {
			metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		}
		metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
		if err != nil {
			return noop, err
		}
		reader = sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(opts.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel initialized", "service", serviceName, "endpoint", opts.Endpoint)
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func sampleRatio(v float64) float64 {
	switch {
	case v == 0:
		return 0.1
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
