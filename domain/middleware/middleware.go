// Package middleware provides composable middleware for tool calls.
package middleware

import (
	"context"
	"encoding/json"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// ExecutionContext contains everything middleware needs about one call.
type ExecutionContext struct {
	// RequestID uniquely identifies the call.
	RequestID string
	// Tool is the definition of the tool being called.
	Tool tool.Definition
	// Input is the validated JSON arguments.
	Input json.RawMessage
	// Cached is set when the response was served from the cache.
	Cached bool
	// Vars carries values between middleware.
	Vars map[string]any
}

// Handler executes a tool call and returns its response.
type Handler func(ctx context.Context, execCtx *ExecutionContext) (tool.Response, error)

// Middleware wraps a Handler with additional behavior. It may run code
// before or after next, short-circuit by not calling next, or transform
// the response or error.
type Middleware func(next Handler) Handler

// Chain composes middleware so that Chain(A, B, C) runs A -> B -> C -> handler.
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// Noop returns a middleware that passes through.
func Noop() Middleware {
	return func(next Handler) Handler {
		return next
	}
}
