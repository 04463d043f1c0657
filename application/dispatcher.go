// Package application provides the tool call dispatcher.
package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
)

// ErrRegistryRequired is returned when a dispatcher is built without a registry.
var ErrRegistryRequired = errors.New("registry is required")

// CredentialCheck reports whether the credentials a tool needs are present.
type CredentialCheck func(def tool.Definition) bool

// CallRequest names a tool and carries its raw JSON arguments.
type CallRequest struct {
	ToolName  string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Reply is the result of Handle: exactly one of Response and Error is set.
type Reply struct {
	RequestID string                  `json:"requestId"`
	Response  *tool.Response          `json:"response,omitempty"`
	Error     *mcperror.ErrorResponse `json:"error,omitempty"`
}

// OK reports whether the call produced a response.
func (r Reply) OK() bool {
	return r.Error == nil
}

// Dispatcher routes tool calls through validation, credential checks and
// the middleware chain to the registered handler.
type Dispatcher struct {
	registry    tool.Registry
	validator   tool.Validator
	middleware  *middleware.Registry
	credentials CredentialCheck
	callTimeout time.Duration
}

// DispatcherConfig contains configuration for the dispatcher.
type DispatcherConfig struct {
	Registry    tool.Registry
	Validator   tool.Validator
	Middleware  *middleware.Registry
	Credentials CredentialCheck
	// CallTimeout bounds each call; tool annotations may override it.
	CallTimeout time.Duration
}

// NewDispatcher creates a dispatcher with the given configuration.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Registry == nil {
		return nil, ErrRegistryRequired
	}
	mw := config.Middleware
	if mw == nil {
		mw = middleware.NewRegistry()
	}
	creds := config.Credentials
	if creds == nil {
		creds = func(tool.Definition) bool { return true }
	}
	return &Dispatcher{
		registry:    config.Registry,
		validator:   config.Validator,
		middleware:  mw,
		credentials: creds,
		callTimeout: config.CallTimeout,
	}, nil
}

// Registry returns the registry the dispatcher serves.
func (d *Dispatcher) Registry() tool.Registry {
	return d.registry
}

// Handle runs Call and folds any failure into a formatted error envelope.
func (d *Dispatcher) Handle(ctx context.Context, req CallRequest) Reply {
	ctx, requestID := ensureRequestID(ctx)
	resp, err := d.Call(ctx, req)
	if err != nil {
		formatted := mcperror.FormatErrorResponse(err)
		return Reply{RequestID: requestID, Error: &formatted}
	}
	return Reply{RequestID: requestID, Response: &resp}
}

// Call executes a tool call. Protocol failures are returned as *mcperror.Error;
// domain failures are successful responses carrying a failed outcome.
func (d *Dispatcher) Call(ctx context.Context, req CallRequest) (resp tool.Response, err error) {
	ctx, requestID := ensureRequestID(ctx)

	if strings.TrimSpace(req.ToolName) == "" {
		return tool.Response{}, mcperror.InvalidRequest("Tool name is required")
	}

	entry, ok := d.registry.Get(req.ToolName)
	if !ok {
		logging.Warn().
			Add(logging.RequestID(requestID)).
			Add(logging.ToolName(req.ToolName)).
			Msg("unknown tool")
		return tool.Response{}, mcperror.ToolNotFound(req.ToolName)
	}
	def := entry.Definition()

	args, err := normalizeArguments(req.Arguments)
	if err != nil {
		return tool.Response{}, err
	}

	if d.validator != nil {
		violations, verr := d.validator.Validate(def.InputSchema(), args)
		if verr != nil {
			return tool.Response{}, mcperror.InternalError(fmt.Sprintf("schema for %s: %v", def.Name(), verr))
		}
		if len(violations) > 0 {
			return tool.Response{}, invalidParams(violations)
		}
	}

	if def.Annotations().RequiresCredentials && !d.credentials(def) {
		return tool.Response{}, mcperror.AuthInvalid()
	}

	if timeout := d.timeoutFor(def); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Add(logging.RequestID(requestID)).
				Add(logging.ToolName(def.Name())).
				Add(logging.Str("panic", fmt.Sprint(r))).
				Add(logging.Str("stack", string(debug.Stack()))).
				Msg("tool handler panicked")
			resp = tool.Response{}
			err = mcperror.InternalError(fmt.Sprintf("Tool %s failed unexpectedly", def.Name()))
		}
	}()

	execCtx := &middleware.ExecutionContext{
		RequestID: requestID,
		Tool:      def,
		Input:     args,
		Vars:      make(map[string]any),
	}
	final := func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
		return entry.Invoke(ctx, execCtx.Input)
	}

	resp, err = d.middleware.Chain()(final)(ctx, execCtx)
	if err != nil {
		return tool.Response{}, normalizeHandlerError(err)
	}
	return resp, nil
}

func (d *Dispatcher) timeoutFor(def tool.Definition) time.Duration {
	if secs := def.Annotations().Timeout; secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return d.callTimeout
}

// normalizeArguments maps absent arguments to {} and rejects non-objects.
func normalizeArguments(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, mcperror.InvalidRequest("Tool arguments must be a JSON object")
	}
	return json.RawMessage(trimmed), nil
}

func invalidParams(violations []tool.Violation) *mcperror.Error {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.Field+": "+v.Description)
	}
	return mcperror.InvalidParams("Invalid parameters: "+strings.Join(parts, "; ")).
		WithData(map[string]any{"violations": violations})
}

// normalizeHandlerError keeps protocol errors, maps decode failures to
// INVALID_PARAMS and leaves everything else to FormatErrorResponse.
func normalizeHandlerError(err error) error {
	var mcpErr *mcperror.Error
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if errors.Is(err, tool.ErrInvalidInput) {
		return mcperror.InvalidParams(err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return mcperror.InternalError("Tool call timed out")
	}
	return err
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored on ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}
