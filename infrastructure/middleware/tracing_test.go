package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	mw "github.com/felixgeelhaar/geo-mcp/infrastructure/middleware"
)

func newRecordingTracing(t *testing.T) (*tracetest.SpanRecorder, mw.TracingConfig) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := mw.DefaultTracingConfig()
	cfg.Tracer = provider.Tracer("test")
	return recorder, cfg
}

func attr(kvs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range kvs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing(t *testing.T) {
	t.Parallel()

	t.Run("records tool attributes", func(t *testing.T) {
		t.Parallel()

		recorder, cfg := newRecordingTracing(t)
		cfg.RecordInput = true
		calls := 0
		handler := mw.Tracing(cfg)(countingHandler(tool.Success(nil), &calls))

		if _, err := handler(context.Background(), execContext(lookupTool("geocode"), `{"address":"Berlin"}`)); err != nil {
			t.Fatalf("call error = %v", err)
		}

		spans := recorder.Ended()
		if len(spans) != 1 {
			t.Fatalf("spans = %d, want 1", len(spans))
		}
		span := spans[0]
		if span.Name() != "tool.geocode" {
			t.Errorf("span name = %q", span.Name())
		}
		if v, ok := attr(span.Attributes(), "mcp.request_id"); !ok || v.AsString() != "req-1" {
			t.Errorf("mcp.request_id = %v", v)
		}
		if v, ok := attr(span.Attributes(), "tool.input"); !ok || v.AsString() != `{"address":"Berlin"}` {
			t.Errorf("tool.input = %v", v)
		}
		if span.Status().Code != codes.Ok {
			t.Errorf("status = %v, want Ok", span.Status())
		}
	})

	t.Run("failure outcome marks span as error", func(t *testing.T) {
		t.Parallel()

		recorder, cfg := newRecordingTracing(t)
		calls := 0
		handler := mw.Tracing(cfg)(countingHandler(tool.Failure("nope"), &calls))

		if _, err := handler(context.Background(), execContext(lookupTool("geocode"), `{}`)); err != nil {
			t.Fatalf("call error = %v", err)
		}
		span := recorder.Ended()[0]
		if v, _ := attr(span.Attributes(), "tool.success"); v.AsBool() {
			t.Error("tool.success should be false")
		}
		if span.Status().Code != codes.Error {
			t.Errorf("status = %v, want Error", span.Status())
		}
	})

	t.Run("records handler errors", func(t *testing.T) {
		t.Parallel()

		recorder, cfg := newRecordingTracing(t)
		handler := mw.Tracing(cfg)(failingHandler)

		if _, err := handler(context.Background(), execContext(lookupTool("geocode"), `{}`)); !errors.Is(err, errBoom) {
			t.Fatalf("error = %v, want errBoom", err)
		}
		span := recorder.Ended()[0]
		if span.Status().Code != codes.Error || span.Status().Description != "boom" {
			t.Errorf("status = %+v", span.Status())
		}
		if len(span.Events()) == 0 {
			t.Error("expected a recorded error event")
		}
	})
}
