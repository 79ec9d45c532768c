package observability

import (
	"context"
	"sync"

	"telugulearn/internal/config"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc", "":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// LearningMetrics holds the domain counters. Instruments come from the global
// meter provider, so they are no-ops until InitMetrics has been installed.
type LearningMetrics struct {
	ActivitiesRecorded otelmetric.Int64Counter
	BadgesAwarded      otelmetric.Int64Counter
	PointsAwarded      otelmetric.Int64Counter
	AIRequests         otelmetric.Int64Counter
	AuthFailures       otelmetric.Int64Counter
}

var (
	metricsOnce   sync.Once
	globalMetrics *LearningMetrics
)

// Metrics returns the process-wide learning counters
func Metrics() *LearningMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter("telugulearn")
		m := &LearningMetrics{}
		m.ActivitiesRecorded, _ = meter.Int64Counter("learning.activities.recorded",
			otelmetric.WithDescription("Learning activities recorded"))
		m.BadgesAwarded, _ = meter.Int64Counter("gamification.badges.awarded",
			otelmetric.WithDescription("Badges and achievements awarded"))
		m.PointsAwarded, _ = meter.Int64Counter("gamification.points.awarded",
			otelmetric.WithDescription("Points added to user profiles"))
		m.AIRequests, _ = meter.Int64Counter("ai.requests",
			otelmetric.WithDescription("Requests sent to the AI provider"))
		m.AuthFailures, _ = meter.Int64Counter("auth.failures",
			otelmetric.WithDescription("Rejected logins and token refreshes"))
		globalMetrics = m
	})
	return globalMetrics
}

// Add increments counter if it was created, tagging it with attrs
func Add(ctx context.Context, counter otelmetric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, n, otelmetric.WithAttributes(attrs...))
}
