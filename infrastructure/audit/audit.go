// Package audit records an append-only trail of tool calls that change
// provider state, such as imagery orders.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
)

// Outcome values recorded on events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Event is one audited tool call.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
	ToolName  string        `json:"tool_name"`
	Outcome   string        `json:"outcome"`
	ErrorCode string        `json:"error_code,omitempty"`
	Error     string        `json:"error,omitempty"`
	OrderID   string        `json:"order_id,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	InputHash string        `json:"input_hash"`
}

// Logger stores audit events.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves events matching the filter, oldest first.
	Query(ctx context.Context, filter Filter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Filter specifies criteria for querying events.
type Filter struct {
	Since    time.Time
	ToolName string
	Outcome  string
	Limit    int
}

func (f Filter) matches(e Event) bool {
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.ToolName != "" && e.ToolName != f.ToolName {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	return true
}

// MemoryLogger keeps the most recent events in memory.
type MemoryLogger struct {
	mu     sync.RWMutex
	events []Event
	maxLen int
}

// MemoryLoggerOption configures the memory logger.
type MemoryLoggerOption func(*MemoryLogger)

// WithMaxEvents sets the maximum number of events to retain.
func WithMaxEvents(n int) MemoryLoggerOption {
	return func(l *MemoryLogger) {
		l.maxLen = n
	}
}

// NewMemoryLogger creates an in-memory audit logger retaining 10000 events
// unless configured otherwise.
func NewMemoryLogger(opts ...MemoryLoggerOption) *MemoryLogger {
	l := &MemoryLogger{maxLen: 10000}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records an event.
func (l *MemoryLogger) Log(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.events = append(l.events, event)
	if l.maxLen > 0 && len(l.events) > l.maxLen {
		l.events = slices.Clone(l.events[len(l.events)-l.maxLen:])
	}
	return nil
}

// Query retrieves events matching the filter.
func (l *MemoryLogger) Query(_ context.Context, filter Filter) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Event
	for _, e := range l.events {
		if !filter.matches(e) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// Close releases resources.
func (l *MemoryLogger) Close() error {
	return nil
}

// ErrQueryUnsupported is returned by loggers that only write.
var ErrQueryUnsupported = errors.New("audit logger does not support queries")

// JSONLogger writes events as JSON lines.
type JSONLogger struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder *json.Encoder
}

// NewJSONLogger creates a JSON lines audit logger. If writer is an
// io.Closer it is closed with the logger.
func NewJSONLogger(writer io.Writer) *JSONLogger {
	return &JSONLogger{
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}
}

// Log writes an event.
func (l *JSONLogger) Log(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return l.encoder.Encode(event)
}

// Query is not supported.
func (l *JSONLogger) Query(context.Context, Filter) ([]Event, error) {
	return nil, ErrQueryUnsupported
}

// Close closes the underlying writer when it is closable.
func (l *JSONLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Middleware records every call to a tool that is not read-only. Audit
// write failures are logged and never fail the call.
func Middleware(logger Logger) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Response, error) {
			if logger == nil || execCtx.Tool.Annotations().ReadOnly {
				return next(ctx, execCtx)
			}

			start := time.Now()
			resp, err := next(ctx, execCtx)

			event := Event{
				Timestamp: start,
				RequestID: execCtx.RequestID,
				ToolName:  execCtx.Tool.Name(),
				Duration:  time.Since(start),
				InputHash: hashInput(execCtx.Input),
			}
			switch {
			case err != nil:
				event.Outcome = OutcomeError
				event.Error = err.Error()
				event.ErrorCode = string(mcperror.CodeInternalError)
				var mcpErr *mcperror.Error
				if errors.As(err, &mcpErr) {
					event.ErrorCode = string(mcpErr.Code)
				}
			case resp.Succeeded():
				event.Outcome = OutcomeSuccess
				event.OrderID = orderID(resp)
			default:
				event.Outcome = OutcomeFailure
				event.Error = failureMessage(resp)
			}

			// The request context may already be cancelled.
			if logErr := logger.Log(context.WithoutCancel(ctx), event); logErr != nil {
				logging.Warn().
					Add(logging.Component("audit")).
					Add(logging.ToolName(event.ToolName)).
					Add(logging.ErrorField(logErr)).
					Msg("audit write failed")
			}
			return resp, err
		}
	}
}

// hashInput fingerprints arguments so the trail never stores raw input.
func hashInput(input json.RawMessage) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

type orderResult struct {
	OrderID string `json:"orderId"`
	Order   struct {
		ID string `json:"orderId"`
	} `json:"order"`
	Error string `json:"error"`
}

func parseResult(resp tool.Response) orderResult {
	var r orderResult
	_ = json.Unmarshal([]byte(resp.Text()), &r)
	return r
}

func orderID(resp tool.Response) string {
	r := parseResult(resp)
	if r.Order.ID != "" {
		return r.Order.ID
	}
	return r.OrderID
}

func failureMessage(resp tool.Response) string {
	return parseResult(resp).Error
}
