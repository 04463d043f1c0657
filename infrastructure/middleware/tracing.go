package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer to use.
	TracerName string

	// Tracer is a custom tracer to use. If nil, the global provider is used.
	Tracer trace.Tracer

	// RecordInput determines if tool arguments are recorded as a span attribute.
	RecordInput bool

	// MaxAttributeSize limits the size of recorded attributes.
	MaxAttributeSize int

	// SpanNamePrefix is prepended to span names.
	SpanNamePrefix string
}

// DefaultTracingConfig returns a sensible default configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName:       "geo-mcp",
		MaxAttributeSize: 1024,
		SpanNamePrefix:   "tool.",
	}
}

// Tracing returns middleware that creates OpenTelemetry spans for tool calls.
func Tracing(cfg TracingConfig) middleware.Middleware {
	tracer := cfg.Tracer
	if tracer == nil {
		name := cfg.TracerName
		if name == "" {
			name = "geo-mcp"
		}
		tracer = otel.Tracer(name)
	}

	maxSize := cfg.MaxAttributeSize
	if maxSize <= 0 {
		maxSize = 1024
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
			ctx, span := tracer.Start(ctx, cfg.SpanNamePrefix+execCtx.Tool.Name(),
				trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()

			ann := execCtx.Tool.Annotations()
			span.SetAttributes(
				attribute.String("mcp.request_id", execCtx.RequestID),
				attribute.String("tool.name", execCtx.Tool.Name()),
				attribute.Bool("tool.read_only", ann.ReadOnly),
				attribute.Bool("tool.idempotent", ann.Idempotent),
				attribute.Bool("tool.cacheable", ann.CanCache()),
				attribute.Bool("tool.requires_credentials", ann.RequiresCredentials),
			)
			if cfg.RecordInput && len(execCtx.Input) > 0 {
				span.SetAttributes(attribute.String("tool.input", truncate(string(execCtx.Input), maxSize)))
			}

			resp, err := next(ctx, execCtx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return resp, err
			}

			succeeded := resp.Succeeded()
			span.SetAttributes(
				attribute.Bool("tool.success", succeeded),
				attribute.Bool("tool.cached", execCtx.Cached),
			)
			if succeeded {
				span.SetStatus(codes.Ok, "")
			} else {
				span.SetStatus(codes.Error, "tool reported failure")
			}
			return resp, nil
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
