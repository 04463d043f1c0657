package mcp

import (
	"context"
	"encoding/json"
	"errors"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/protocol"

	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
)

// rpcCodes maps envelope codes onto JSON-RPC error codes.
var rpcCodes = map[mcperror.Code]int{
	mcperror.CodeInvalidRequest: protocol.CodeInvalidRequest,
	mcperror.CodeInvalidParams:  protocol.CodeInvalidParams,
	mcperror.CodeToolNotFound:   protocol.CodeNotFound,
	mcperror.CodeAuthInvalid:    protocol.CodeUnauthorized,
	mcperror.CodeRateLimited:    protocol.CodeRateLimited,
}

// registryMiddleware answers tools/list from the registry with each tool's
// declared JSON Schema, and routes tools/call through the dispatcher.
// Other methods fall through to mcp-go.
func (s *GeoServer) registryMiddleware() mcpgo.Middleware {
	return func(next mcpgo.MiddlewareHandlerFunc) mcpgo.MiddlewareHandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			switch req.Method {
			case protocol.MethodToolsList:
				return protocol.NewResponse(req.ID, map[string]any{"tools": s.toolList()}), nil
			case protocol.MethodToolsCall:
				return s.handleToolsCall(ctx, req)
			default:
				return next(ctx, req)
			}
		}
	}
}

// toolList renders the registry in registration order.
func (s *GeoServer) toolList() []map[string]any {
	registered := make(map[string]*mcpgo.ToolAnnotations)
	for _, info := range s.srv.Tools() {
		registered[info.Name] = info.Annotations
	}

	defs := s.dispatcher.Registry().ListTools()
	list := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		schema := def.InputSchema().Raw()
		if def.InputSchema().IsEmpty() {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		item := map[string]any{
			"name":        def.Name(),
			"description": def.Description(),
			"inputSchema": schema,
		}
		if ann := registered[def.Name()]; ann != nil {
			item["annotations"] = ann
		}
		list = append(list, item)
	}
	return list
}

func (s *GeoServer) handleToolsCall(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	text, err := s.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return nil, rpcError(err)
	}
	return protocol.NewResponse(req.ID, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}), nil
}

// rpcError converts a call failure into a JSON-RPC error. The envelope
// travels as the error data.
func rpcError(err error) *protocol.Error {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		return protocol.NewInternalError(err.Error())
	}
	code, ok := rpcCodes[perr.Envelope.Error.Code]
	if !ok {
		code = protocol.CodeInternalError
	}
	return &protocol.Error{Code: code, Message: perr.Envelope.Error.Message, Data: perr.Envelope}
}
