// Package observability wires the OpenTelemetry SDK for tracing and metrics.
package observability

import (
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/config"
)

// ExporterType selects where spans go.
type ExporterType string

// Span exporters. Stdout writes to stderr because stdout carries the MCP
// stdio stream.
const (
	ExporterOTLP   ExporterType = "otlp"
	ExporterStdout ExporterType = "stdout"
	ExporterNoop   ExporterType = "noop"
)

// Config describes the telemetry a Provider sets up.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Tracing        TracingConfig
	Metrics        MetricsConfig
}

// TracingConfig configures span export. SampleRate is clamped to [0,1] and
// applies to root spans only.
type TracingConfig struct {
	Enabled    bool
	Exporter   ExporterType
	Endpoint   string // host:port of the OTLP collector
	Insecure   bool
	SampleRate float64

	BatchTimeout       time.Duration
	MaxExportBatchSize int
}

// MetricsConfig enables the in-process meter. Recorded values are read on
// demand through Provider.Snapshot; nothing is pushed.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig has tracing and metrics off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "geo-mcp",
		ServiceVersion: "dev",
		Environment:    "development",
		Tracing: TracingConfig{
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(c *Config) { c.ServiceVersion = version }
}

// WithEnvironment sets the deployment.environment resource attribute.
func WithEnvironment(env string) Option {
	return func(c *Config) { c.Environment = env }
}

// WithTracing turns tracing on with the given exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithTracingInsecure dials the OTLP collector without TLS.
func WithTracingInsecure() Option {
	return func(c *Config) { c.Tracing.Insecure = true }
}

// WithSampleRate sets the root span sampling ratio.
func WithSampleRate(rate float64) Option {
	return func(c *Config) { c.Tracing.SampleRate = rate }
}

// WithMetrics turns the in-process meter on.
func WithMetrics() Option {
	return func(c *Config) { c.Metrics.Enabled = true }
}

// FromServerConfig translates the observability section of the server
// configuration. Tracing without an explicit exporter goes to stderr, and
// collectors are assumed to be local sidecars reachable without TLS.
func FromServerConfig(cfg config.ObservabilityConfig, version string) []Option {
	opts := []Option{WithServiceVersion(version)}
	if cfg.Environment != "" {
		opts = append(opts, WithEnvironment(cfg.Environment))
	}
	if cfg.MetricsEnabled {
		opts = append(opts, WithMetrics())
	}
	if !cfg.TracingEnabled {
		return opts
	}

	exporter := ExporterStdout
	if cfg.Exporter != "" {
		exporter = ExporterType(cfg.Exporter)
	}
	opts = append(opts, WithTracing(exporter, cfg.Endpoint), WithTracingInsecure())
	if cfg.SampleRate > 0 {
		opts = append(opts, WithSampleRate(cfg.SampleRate))
	}
	return opts
}
