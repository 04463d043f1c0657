package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/cache"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/telemetry"
)

// CachingConfig configures the caching middleware.
type CachingConfig struct {
	// Cache stores serialized responses. Nil disables caching.
	Cache cache.Cache
	// TTL is the entry lifetime. Zero means no expiry.
	TTL time.Duration
	// Metrics records hits and misses when set.
	Metrics *telemetry.MetricsProvider
}

// Caching returns middleware that serves cacheable tools from the cache.
// Only successful responses are stored. Cache backend failures are logged
// and the call proceeds uncached.
func Caching(cfg CachingConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
			if cfg.Cache == nil || !execCtx.Tool.Annotations().CanCache() {
				return next(ctx, execCtx)
			}

			name := execCtx.Tool.Name()
			key := cache.Key(name, execCtx.Input)

			data, ok, err := cfg.Cache.Get(ctx, key)
			if err != nil {
				logging.Warn().
					Add(logging.RequestID(execCtx.RequestID)).
					Add(logging.ToolName(name)).
					Add(logging.ErrorField(err)).
					Msg("cache lookup failed")
			}
			if ok {
				var resp tool.Response
				if jsonErr := json.Unmarshal(data, &resp); jsonErr == nil {
					execCtx.Cached = true
					if cfg.Metrics != nil {
						cfg.Metrics.RecordCacheHit(ctx, name)
					}
					return resp, nil
				}
			}
			if cfg.Metrics != nil {
				cfg.Metrics.RecordCacheMiss(ctx, name)
			}

			resp, err := next(ctx, execCtx)
			if err != nil || !resp.Succeeded() {
				return resp, err
			}

			if data, err := json.Marshal(resp); err == nil {
				if err := cfg.Cache.Set(ctx, key, data, cfg.TTL); err != nil {
					logging.Warn().
						Add(logging.RequestID(execCtx.RequestID)).
						Add(logging.ToolName(name)).
						Add(logging.ErrorField(err)).
						Msg("cache store failed")
				}
			}
			return resp, nil
		}
	}
}
