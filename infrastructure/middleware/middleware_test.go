package middleware_test

import (
	"context"
	"encoding/json"
	"errors"

	domainmw "github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

func lookupTool(name string) tool.Definition {
	return tool.NewBuilder(name).
		WithDescription("test lookup").
		WithAnnotations(tool.LookupAnnotations()).
		WithHandler(func(context.Context, json.RawMessage) (tool.Response, error) {
			return tool.Response{}, nil
		}).
		MustBuild().
		Definition()
}

func orderTool(name string) tool.Definition {
	return tool.NewBuilder(name).
		RequiresCredentials().
		WithHandler(func(context.Context, json.RawMessage) (tool.Response, error) {
			return tool.Response{}, nil
		}).
		MustBuild().
		Definition()
}

func execContext(def tool.Definition, input string) *domainmw.ExecutionContext {
	return &domainmw.ExecutionContext{
		RequestID: "req-1",
		Tool:      def,
		Input:     json.RawMessage(input),
	}
}

// countingHandler returns the outcome and counts invocations.
func countingHandler(outcome tool.Outcome, calls *int) domainmw.Handler {
	return func(context.Context, *domainmw.ExecutionContext) (tool.Response, error) {
		*calls++
		return outcome.Response()
	}
}

var errBoom = errors.New("boom")

func failingHandler(context.Context, *domainmw.ExecutionContext) (tool.Response, error) {
	return tool.Response{}, errBoom
}
