package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"telugulearn/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupObservability_AllEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing: true,
		EnableMetrics: true,
		EnableLogging: true,
		Protocol:      "grpc",
		Endpoint:      "localhost:4317",
		Insecure:      true,
	}
	tp, mp, logger, err := SetupObservability(cfg, "test-service", "info")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NotNil(t, mp)
	require.NotNil(t, logger)
	assert.Equal(t, "test-service", cfg.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Shutdown(ctx, tp, mp, logger)
}

func TestSetupObservability_NoneEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{ServiceName: "test-service"}
	tp, mp, logger, err := SetupObservability(cfg, "", "")
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.Nil(t, mp)
	require.NotNil(t, logger)
}

func TestInitTracing_UnsupportedProtocol(t *testing.T) {
	_, err := InitTracing(&config.OpenTelemetryConfig{Protocol: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = InitMetrics(&config.OpenTelemetryConfig{Protocol: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestFinishSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "with-error")
	err := errors.New("practice failed")
	FinishSpan(span, &err)

	_, okSpan := tp.Tracer("test").Start(context.Background(), "ok")
	var noErr error
	FinishSpan(okSpan, &noErr)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "practice failed", ended[0].Status().Description)
	assert.Equal(t, codes.Unset, ended[1].Status().Code)

	assert.NotPanics(t, func() { FinishSpan(nil, &err) })
}

func TestTraceFunctionNaming(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	globalTracer = tp.Tracer("test")
	defer func() { globalTracer = nil }()

	_, span := TraceVocabularyFunction(context.Background(), "RecordPractice", AttributeWordID(9))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "vocabulary.RecordPractice", ended[0].Name())
}

func TestMetrics_AreSafeWithoutProvider(t *testing.T) {
	m := Metrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		Add(context.Background(), m.BadgesAwarded, 1, AttributeActivityType("quiz"))
		Add(context.Background(), nil, 1)
	})
}
