// Package telemetry provides OpenTelemetry metric instruments for tool calls.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider records tool call metrics.
type MetricsProvider struct {
	toolCalls     metric.Int64Counter
	toolDuration  metric.Float64Histogram
	rateLimitHits metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	errors        metric.Int64Counter
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the instrumentation scope name.
	MeterName string
	// MeterVersion is the instrumentation scope version.
	MeterVersion string
	// MeterProvider overrides the global provider.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/geo-mcp",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates the instruments.
func NewMetricsProvider(config MetricsConfig) (*MetricsProvider, error) {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion))

	mp := &MetricsProvider{}
	var err, e error

	mp.toolCalls, e = meter.Int64Counter("geo.tool.calls",
		metric.WithDescription("Number of tool calls"),
		metric.WithUnit("{call}"))
	err = errors.Join(err, e)

	mp.toolDuration, e = meter.Float64Histogram("geo.tool.duration",
		metric.WithDescription("Duration of tool calls"),
		metric.WithUnit("ms"))
	err = errors.Join(err, e)

	mp.rateLimitHits, e = meter.Int64Counter("geo.ratelimit.hits",
		metric.WithDescription("Calls rejected by the rate limiter"),
		metric.WithUnit("{hit}"))
	err = errors.Join(err, e)

	mp.cacheHits, e = meter.Int64Counter("geo.cache.hits",
		metric.WithDescription("Responses served from cache"),
		metric.WithUnit("{hit}"))
	err = errors.Join(err, e)

	mp.cacheMisses, e = meter.Int64Counter("geo.cache.misses",
		metric.WithDescription("Cacheable calls not found in cache"),
		metric.WithUnit("{miss}"))
	err = errors.Join(err, e)

	mp.errors, e = meter.Int64Counter("geo.errors",
		metric.WithDescription("Protocol errors returned to clients"),
		metric.WithUnit("{error}"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return mp, nil
}

// RecordToolCall records a completed call. outcome is success, failure or error.
func (mp *MetricsProvider) RecordToolCall(ctx context.Context, toolName, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("outcome", outcome),
	)
	mp.toolCalls.Add(ctx, 1, attrs)
	mp.toolDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordError records a protocol error by code.
func (mp *MetricsProvider) RecordError(ctx context.Context, toolName, code string) {
	mp.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("error.code", code),
	))
}

// RecordRateLimitHit records a rate limited call.
func (mp *MetricsProvider) RecordRateLimitHit(ctx context.Context, toolName string) {
	mp.rateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", toolName)))
}

// RecordCacheHit records a cache hit.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, toolName string) {
	mp.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", toolName)))
}

// RecordCacheMiss records a cache miss.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, toolName string) {
	mp.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", toolName)))
}
