package application

import (
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// Option configures the dispatcher.
type Option func(*DispatcherConfig)

// WithRegistry sets the tool registry.
func WithRegistry(r tool.Registry) Option {
	return func(c *DispatcherConfig) {
		c.Registry = r
	}
}

// WithValidator sets the input validator. Without one, arguments are
// passed to handlers unchecked.
func WithValidator(v tool.Validator) Option {
	return func(c *DispatcherConfig) {
		c.Validator = v
	}
}

// WithMiddleware sets the middleware registry.
func WithMiddleware(m *middleware.Registry) Option {
	return func(c *DispatcherConfig) {
		c.Middleware = m
	}
}

// WithCredentialCheck sets the check run for tools requiring credentials.
func WithCredentialCheck(check CredentialCheck) Option {
	return func(c *DispatcherConfig) {
		c.Credentials = check
	}
}

// WithCallTimeout bounds each tool call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *DispatcherConfig) {
		c.CallTimeout = d
	}
}

// NewDispatcherWithOptions creates a dispatcher with functional options.
func NewDispatcherWithOptions(opts ...Option) (*Dispatcher, error) {
	config := DispatcherConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewDispatcher(config)
}
