// Package middleware provides tool call middleware implementations.
package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogInput logs the tool arguments (may contain addresses).
	LogInput bool
	// LogOutput logs the response text, truncated to MaxOutput bytes.
	LogOutput bool
	// MaxOutput bounds logged output. Zero means 500.
	MaxOutput int
}

// Logging returns middleware that logs tool execution.
func Logging(cfg LoggingConfig) middleware.Middleware {
	maxOutput := cfg.MaxOutput
	if maxOutput <= 0 {
		maxOutput = 500
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
			start := time.Now()

			entry := logging.Debug().
				Add(logging.RequestID(execCtx.RequestID)).
				Add(logging.ToolName(execCtx.Tool.Name()))
			if cfg.LogInput && len(execCtx.Input) > 0 {
				entry = entry.Add(logging.Str("input", string(execCtx.Input)))
			}
			entry.Msg("calling tool")

			resp, err := next(ctx, execCtx)
			duration := time.Since(start)

			if err != nil {
				ev := logging.Error()
				var mcpErr *mcperror.Error
				if errors.As(err, &mcpErr) {
					// Protocol rejections are client mistakes, not server faults.
					ev = logging.Warn().Add(logging.ErrorCode(string(mcpErr.Code)))
				}
				ev.Add(logging.RequestID(execCtx.RequestID)).
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("tool call failed")
				return resp, err
			}

			logEntry := logging.Info().
				Add(logging.RequestID(execCtx.RequestID)).
				Add(logging.ToolName(execCtx.Tool.Name())).
				Add(logging.Outcome(resp.Succeeded())).
				Add(logging.Duration(duration)).
				Add(logging.Cached(execCtx.Cached))
			if cfg.LogOutput {
				output := resp.Text()
				if len(output) > maxOutput {
					output = output[:maxOutput] + "..."
				}
				logEntry = logEntry.Add(logging.Str("output", output))
			}
			logEntry.Msg("tool called")

			return resp, nil
		}
	}
}
