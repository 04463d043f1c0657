package middleware

import (
	"context"
	"math"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/telemetry"
)

// RateLimitScope defines how rate limiting keys are generated.
type RateLimitScope string

const (
	// ScopeGlobal shares one bucket across all tools.
	ScopeGlobal RateLimitScope = "global"
	// ScopePerTool keeps one bucket per tool name.
	ScopePerTool RateLimitScope = "per_tool"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limiter is the rate limiter to use.
	// If nil, a token bucket is created from Rate, Burst and Window.
	Limiter ratelimit.RateLimiter

	// Scope determines how rate limiting keys are generated.
	// Default is ScopePerTool.
	Scope RateLimitScope

	// Rate is the number of tokens added per Window.
	Rate int

	// Burst is the bucket capacity. Zero means Rate.
	Burst int

	// Window is the period over which Rate tokens are added. Zero means
	// one second.
	Window time.Duration

	// FailOpen allows calls when the limiter itself fails.
	FailOpen bool

	// Metrics records rejected calls when set.
	Metrics *telemetry.MetricsProvider
}

// DefaultRateLimitConfig returns a sensible default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope:  ScopePerTool,
		Rate:   60,
		Burst:  10,
		Window: time.Minute,
	}
}

// RetryAfter returns the whole seconds until one token is refilled, at least 1.
func (c RateLimitConfig) RetryAfter() int {
	window := c.Window
	if window <= 0 {
		window = time.Second
	}
	rate := c.Rate
	if rate <= 0 {
		rate = 1
	}
	secs := int(math.Ceil(window.Seconds() / float64(rate)))
	return max(secs, 1)
}

// RateLimit returns middleware that rejects calls over budget with RATE_LIMITED.
func RateLimit(cfg RateLimitConfig) middleware.Middleware {
	limiter := cfg.Limiter
	if limiter == nil {
		rate := cfg.Rate
		if rate <= 0 {
			rate = 60
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = rate
		}
		window := cfg.Window
		if window <= 0 {
			window = time.Second
		}
		limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Interval: window,
			Burst:    burst,
			FailOpen: cfg.FailOpen,
		})
	}

	scope := cfg.Scope
	if scope == "" {
		scope = ScopePerTool
	}
	retryAfter := cfg.RetryAfter()

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
			key := "global"
			if scope == ScopePerTool {
				key = execCtx.Tool.Name()
			}

			if !limiter.Allow(ctx, key) {
				logging.Warn().
					Add(logging.RequestID(execCtx.RequestID)).
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.Str("scope", string(scope))).
					Add(logging.Int("retry_after", retryAfter)).
					Msg("rate limit exceeded")
				if cfg.Metrics != nil {
					cfg.Metrics.RecordRateLimitHit(ctx, execCtx.Tool.Name())
				}
				return tool.Response{}, mcperror.RateLimited(retryAfter)
			}

			return next(ctx, execCtx)
		}
	}
}
