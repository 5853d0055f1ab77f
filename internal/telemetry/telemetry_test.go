// internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestInitDisabled(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := Init(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

// retainSpans keeps exported spans readable after the provider shuts down.
type retainSpans struct{ *tracetest.InMemoryExporter }

func (retainSpans) Shutdown(context.Context) error { return nil }

func restoreProviders(t *testing.T) {
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestInitExportsSpans(t *testing.T) {
	restoreProviders(t)

	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := Init(context.Background(), nil, Options{
		ServiceName:  "libradesk-test",
		Enabled:      true,
		SampleRatio:  1,
		Exporter:     retainSpans{exporter},
		MetricReader: sdkmetric.NewManualReader(),
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "library.borrow_book")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "library.borrow_book", spans[0].Name)
	assert.Contains(t, spans[0].Resource.Attributes(), semconv.ServiceNameKey.String("libradesk-test"))
}

func TestInitInstallsMeterProvider(t *testing.T) {
	restoreProviders(t)

	reader := sdkmetric.NewManualReader()
	shutdown, err := Init(context.Background(), nil, Options{
		Enabled:      true,
		Exporter:     retainSpans{tracetest.NewInMemoryExporter()},
		MetricReader: reader,
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, shutdown(context.Background())) }()

	counter, err := otel.Meter("test").Int64Counter("library.borrowings.created")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.1, sampleRatio(0))
	assert.Equal(t, 0.0, sampleRatio(-2))
	assert.Equal(t, 1.0, sampleRatio(3))
	assert.Equal(t, 0.5, sampleRatio(0.5))
}
