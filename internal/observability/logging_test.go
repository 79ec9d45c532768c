package observability

import (
	"context"
	"errors"
	"testing"

	contextutils "telugulearn/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, observedLogs := observer.New(level)
	return &Logger{Logger: zap.New(core)}, observedLogs
}

func TestLogWithContextAddsTraceInfo(t *testing.T) {
	tp := trace.NewTracerProvider()
	tracer := tp.Tracer("test-tracer")
	logger, observedLogs := newObservedLogger(zap.InfoLevel)

	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	logger.Info(ctx, "test message", nil)

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0].Message)

	fields := entries[0].ContextMap()
	spanContext := span.SpanContext()
	assert.Equal(t, spanContext.TraceID().String(), fields["trace_id"])
	assert.Equal(t, spanContext.SpanID().String(), fields["span_id"])
}

func TestLogWithContextNoSpan(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.InfoLevel)

	logger.Info(context.Background(), "test message", nil)

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}

func TestLogWithContextAddsRequestAndUser(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.InfoLevel)

	ctx := contextutils.WithRequestID(context.Background(), "req-42")
	ctx = contextutils.WithUserID(ctx, 7)
	logger.Info(ctx, "practice recorded", map[string]interface{}{"word_id": 3})

	fields := observedLogs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.EqualValues(t, 7, fields["user_id"])
	assert.EqualValues(t, 3, fields["word_id"])
}

func TestLoggerError_DoesNotMutateCallerFields(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.InfoLevel)
	fields := map[string]interface{}{"chapter_id": 2}

	logger.Error(context.Background(), "progress failed", contextutils.WrapError(contextutils.ErrPrerequisiteNotMet, "vowels"), fields)

	assert.Len(t, fields, 1)
	logged := observedLogs.All()[0].ContextMap()
	assert.Equal(t, string(contextutils.ErrorCodePrerequisiteNotMet), logged["error_code"])
	assert.Contains(t, logged["error"], "vowels")
}

func TestLoggerLevels(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.WarnLevel)

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown")
	logger.Error(context.Background(), "shown", errors.New("boom"))

	assert.Equal(t, 2, observedLogs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zap.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zap.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zap.InfoLevel, ParseLevel(""))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info(context.Background(), "ignored")
		logger.Error(context.Background(), "ignored", errors.New("x"))
	})

	var nilLogger *Logger
	assert.NotPanics(t, func() { nilLogger.Info(context.Background(), "ignored") })
}
