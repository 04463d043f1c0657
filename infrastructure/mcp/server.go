package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	mcpgo "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/geo-mcp/application"
	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// ErrUnknownTransport is returned by Serve for an unsupported transport name.
var ErrUnknownTransport = errors.New("unknown transport")

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ProtocolError carries a formatted error envelope back to the transport.
// Its message is the envelope JSON.
type ProtocolError struct {
	Envelope mcperror.ErrorResponse
}

func (e *ProtocolError) Error() string {
	data, err := json.Marshal(e.Envelope)
	if err != nil {
		return e.Envelope.Error.Message
	}
	return string(data)
}

// GeoServer wraps an MCP server that dispatches calls to registered tools.
type GeoServer struct {
	srv        *mcpgo.Server
	dispatcher *application.Dispatcher
	info       mcpgo.ServerInfo
	middleware []mcpgo.Middleware
}

// ServerConfig configures a GeoServer.
type ServerConfig struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string

	// Dispatcher routes calls; its registry supplies the tool list.
	Dispatcher *application.Dispatcher
}

// NewGeoServer creates an MCP server exposing every registered tool.
func NewGeoServer(cfg ServerConfig) (*GeoServer, error) {
	if cfg.Dispatcher == nil {
		return nil, application.ErrRegistryRequired
	}

	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &GeoServer{
		srv:        mcpgo.NewServer(info, opts...),
		dispatcher: cfg.Dispatcher,
		info:       info,
	}
	for _, def := range cfg.Dispatcher.Registry().ListTools() {
		s.registerTool(def)
	}
	return s, nil
}

// registerTool registers a definition with the MCP server. mcp-go derives
// the tool's schema from a struct type generated for the declared input.
func (s *GeoServer) registerTool(def tool.Definition) {
	name := def.Name()
	b := s.srv.Tool(name).Description(def.Description())

	ann := def.Annotations()
	if ann.ReadOnly {
		b = b.ReadOnly()
	}
	if ann.Idempotent {
		b = b.Idempotent()
	}
	if ann.OpenWorld {
		b = b.OpenWorld()
	} else {
		b = b.ClosedWorld()
	}

	b.Handler(handlerFor(inputType(def.InputSchema()), func(ctx context.Context, input json.RawMessage) (string, error) {
		return s.CallTool(ctx, name, input)
	}))
}

// CallTool runs one call through the dispatcher. A protocol failure is
// returned as a *ProtocolError.
func (s *GeoServer) CallTool(ctx context.Context, name string, input json.RawMessage) (string, error) {
	reply := s.dispatcher.Handle(ctx, application.CallRequest{ToolName: name, Arguments: input})
	if !reply.OK() {
		return "", &ProtocolError{Envelope: *reply.Error}
	}
	return reply.Response.Text(), nil
}

// Server returns the underlying mcp-go server.
func (s *GeoServer) Server() *mcpgo.Server {
	return s.srv
}

// Info returns the server metadata.
func (s *GeoServer) Info() mcpgo.ServerInfo {
	return s.info
}

// Use adds request middleware. It runs ahead of the registry handling
// on every transport.
func (s *GeoServer) Use(middlewares ...mcpgo.Middleware) {
	s.middleware = append(s.middleware, middlewares...)
}

// Middleware returns the request chain applied when serving.
func (s *GeoServer) Middleware() []mcpgo.Middleware {
	return append(slices.Clone(s.middleware), s.registryMiddleware())
}

// ServeStdio runs the server over stdin/stdout.
func (s *GeoServer) ServeStdio(ctx context.Context, opts ...mcpgo.ServeOption) error {
	opts = append([]mcpgo.ServeOption{mcpgo.WithMiddleware(s.Middleware()...)}, opts...)
	return mcpgo.ServeStdio(ctx, s.srv, opts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (s *GeoServer) ServeHTTP(ctx context.Context, addr string, opts ...mcpgo.HTTPOption) error {
	return mcpgo.ServeHTTPWithMiddleware(ctx, s.srv, addr, opts, mcpgo.WithMiddleware(s.Middleware()...))
}

// Serve runs the named transport until ctx is done.
func (s *GeoServer) Serve(ctx context.Context, transport, addr string) error {
	switch transport {
	case TransportStdio, "":
		return s.ServeStdio(ctx)
	case TransportHTTP:
		return s.ServeHTTP(ctx, addr)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}
