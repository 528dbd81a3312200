package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func TestTraceBatch(t *testing.T) {
	sr := withRecorder(t)

	err := TraceBatch(context.Background(), "encode", 42, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "encode", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("batch.size", 42))
}

func TestTraceBatch_Error(t *testing.T) {
	sr := withRecorder(t)
	boom := errors.New("source closed")

	err := TraceBatch(context.Background(), "read", 1, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "source closed", spans[0].Status().Description)
}

func TestInitTracing_Disabled(t *testing.T) {
	require.NoError(t, InitTracing(DefaultTracingConfig()))
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInitTracing_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Output = &buf
	require.NoError(t, InitTracing(cfg))

	_, span := StartSpan(context.Background(), "convert")
	EndSpan(span, nil)

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"convert"`)
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.ExporterType = "zipkin"
	assert.Error(t, InitTracing(cfg))
}

func TestInjectExtractContext(t *testing.T) {
	withRecorder(t)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, span := StartSpan(context.Background(), "publish")
	defer span.End()

	headers := map[string]string{}
	InjectContext(ctx, headers)
	require.Contains(t, headers, "traceparent")

	got := ExtractContext(context.Background(), headers)
	assert.NotNil(t, got)
}
