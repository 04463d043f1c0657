package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	mw "github.com/felixgeelhaar/geo-mcp/infrastructure/middleware"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("rejects calls over budget", func(t *testing.T) {
		t.Parallel()

		calls := 0
		handler := mw.RateLimit(mw.RateLimitConfig{Rate: 1, Burst: 1, Window: time.Hour})(
			countingHandler(tool.Success(nil), &calls))

		if _, err := handler(context.Background(), execContext(lookupTool("geocode"), `{}`)); err != nil {
			t.Fatalf("first call error = %v", err)
		}

		_, err := handler(context.Background(), execContext(lookupTool("geocode"), `{}`))
		var mcpErr *mcperror.Error
		if !errors.As(err, &mcpErr) {
			t.Fatalf("error = %v, want *mcperror.Error", err)
		}
		if mcpErr.Code != mcperror.CodeRateLimited || mcpErr.StatusCode != 429 {
			t.Errorf("error = %+v, want RATE_LIMITED/429", mcpErr)
		}
		if mcpErr.Data["retryAfter"] != 3600 {
			t.Errorf("retryAfter = %v, want 3600", mcpErr.Data["retryAfter"])
		}
		if calls != 1 {
			t.Errorf("handler calls = %d, want 1", calls)
		}
	})

	t.Run("per tool scope keeps separate buckets", func(t *testing.T) {
		t.Parallel()

		calls := 0
		handler := mw.RateLimit(mw.RateLimitConfig{Rate: 1, Burst: 1, Window: time.Hour, Scope: mw.ScopePerTool})(
			countingHandler(tool.Success(nil), &calls))

		for _, name := range []string{"geocode", "reverse_geocode"} {
			if _, err := handler(context.Background(), execContext(lookupTool(name), `{}`)); err != nil {
				t.Fatalf("%s call error = %v", name, err)
			}
		}
		if calls != 2 {
			t.Errorf("handler calls = %d, want 2", calls)
		}
	})

	t.Run("global scope shares a bucket", func(t *testing.T) {
		t.Parallel()

		calls := 0
		handler := mw.RateLimit(mw.RateLimitConfig{Rate: 1, Burst: 1, Window: time.Hour, Scope: mw.ScopeGlobal})(
			countingHandler(tool.Success(nil), &calls))

		_, _ = handler(context.Background(), execContext(lookupTool("geocode"), `{}`))
		if _, err := handler(context.Background(), execContext(lookupTool("reverse_geocode"), `{}`)); err == nil {
			t.Error("second tool should share the exhausted global bucket")
		}
	})
}

func TestRateLimit_Window(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		window    time.Duration
		wait      time.Duration
		wantAfter bool
	}{
		{name: "refills once the window elapses", window: 200 * time.Millisecond, wait: 300 * time.Millisecond, wantAfter: true},
		{name: "long window stays empty", window: time.Hour, wait: 1100 * time.Millisecond, wantAfter: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			handler := mw.RateLimit(mw.RateLimitConfig{Rate: 1, Burst: 1, Window: tt.window})(
				countingHandler(tool.Success(nil), &calls))
			call := func() error {
				_, err := handler(context.Background(), execContext(lookupTool("geocode"), `{}`))
				return err
			}

			if err := call(); err != nil {
				t.Fatalf("first call error = %v", err)
			}
			if err := call(); err == nil {
				t.Fatal("immediate second call should be rejected")
			}

			time.Sleep(tt.wait)
			if err := call(); (err == nil) != tt.wantAfter {
				t.Errorf("call after %v: error = %v, want allowed %v", tt.wait, err, tt.wantAfter)
			}
		})
	}
}

func TestRateLimitConfig_RetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  mw.RateLimitConfig
		want int
	}{
		{name: "sixty per minute", cfg: mw.RateLimitConfig{Rate: 60, Window: time.Minute}, want: 1},
		{name: "ten per minute", cfg: mw.RateLimitConfig{Rate: 10, Window: time.Minute}, want: 6},
		{name: "fast rate rounds up to one", cfg: mw.RateLimitConfig{Rate: 100, Window: time.Second}, want: 1},
		{name: "zero values", cfg: mw.RateLimitConfig{}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.RetryAfter(); got != tt.want {
				t.Errorf("RetryAfter() = %d, want %d", got, tt.want)
			}
		})
	}
}
