package observability

import (
	"context"

	"telugulearn/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SetupObservability initializes tracing, metrics, and logging for a service
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName, logLevel string) (result0 *sdktrace.TracerProvider, result1 *metric.MeterProvider, result2 *Logger, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	var tp *sdktrace.TracerProvider
	var mp *metric.MeterProvider

	logger := NewLoggerWithLevel(cfg, ParseLevel(logLevel))
	InitPropagation()

	if cfg.EnableTracing {
		tp, err = InitTracing(cfg)
		if err != nil {
			return nil, nil, logger, err
		}
		otel.SetTracerProvider(tp)
		InitGlobalTracer()
		logger.Info(context.Background(), "Tracing enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			return tp, nil, logger, err
		}
		otel.SetMeterProvider(mp)
		logger.Info(context.Background(), "Metrics enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}

	return tp, mp, logger, nil
}

// Shutdown flushes and stops the providers returned by SetupObservability
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider, mp *metric.MeterProvider, logger *Logger) {
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = logger.Sync()
}
