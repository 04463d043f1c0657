package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/telemetry"
)

// Outcome labels recorded on the tool call counter.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics returns middleware that records call counts and durations.
// A nil provider yields a pass-through middleware.
func Metrics(provider *telemetry.MetricsProvider) middleware.Middleware {
	if provider == nil {
		return middleware.Noop()
	}
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
			start := time.Now()
			resp, err := next(ctx, execCtx)

			outcome := OutcomeSuccess
			switch {
			case err != nil:
				outcome = OutcomeError
				code := string(mcperror.CodeInternalError)
				var mcpErr *mcperror.Error
				if errors.As(err, &mcpErr) {
					code = string(mcpErr.Code)
				}
				provider.RecordError(ctx, execCtx.Tool.Name(), code)
			case !resp.Succeeded():
				outcome = OutcomeFailure
			}
			provider.RecordToolCall(ctx, execCtx.Tool.Name(), outcome, time.Since(start))
			return resp, err
		}
	}
}
