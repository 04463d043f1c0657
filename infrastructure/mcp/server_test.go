package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/protocol"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/felixgeelhaar/mcp-go/transport"

	"github.com/felixgeelhaar/geo-mcp/application"
	"github.com/felixgeelhaar/geo-mcp/domain/mcperror"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/mcp"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/schema"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/storage/memory"
)

func newServer(t *testing.T) *mcp.GeoServer {
	t.Helper()

	registry := memory.NewToolRegistry()
	echo := tool.NewBuilder("echo").
		WithDescription("Echo the message").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"message": tool.StringProp("Message", `"minLength":1`),
			"times":   tool.IntegerProp("Repetitions", 1, 3),
		}, "message")).
		WithAnnotations(tool.LookupAnnotations()).
		WithHandler(tool.Typed(func(_ context.Context, in struct {
			Message string `json:"message"`
			Times   int    `json:"times"`
		}) tool.Outcome {
			return tool.Success(map[string]any{"message": in.Message, "times": in.Times})
		})).
		MustBuild()
	if err := registry.Register(echo); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	d, err := application.NewDispatcherWithOptions(
		application.WithRegistry(registry),
		application.WithValidator(schema.NewValidator()),
	)
	if err != nil {
		t.Fatalf("NewDispatcherWithOptions() error = %v", err)
	}

	srv, err := mcp.NewGeoServer(mcp.ServerConfig{
		Name:         "geo-mcp-test",
		Version:      "1.0.0",
		Instructions: "testing",
		Dispatcher:   d,
	})
	if err != nil {
		t.Fatalf("NewGeoServer() error = %v", err)
	}
	return srv
}

func TestNewGeoServer(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	if srv.Server() == nil {
		t.Fatal("Server() returned nil")
	}
	if srv.Info().Name != "geo-mcp-test" || !srv.Info().Capabilities.Tools {
		t.Errorf("Info() = %+v", srv.Info())
	}

	if _, err := mcp.NewGeoServer(mcp.ServerConfig{}); err == nil {
		t.Error("NewGeoServer() without dispatcher should fail")
	}
}

func TestGeoServer_CallTool(t *testing.T) {
	t.Parallel()

	srv := newServer(t)

	t.Run("returns response text", func(t *testing.T) {
		t.Parallel()

		text, err := srv.CallTool(context.Background(), "echo", json.RawMessage(`{"message":"hi"}`))
		if err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
		if !strings.Contains(text, `"message": "hi"`) {
			t.Errorf("text = %s", text)
		}
	})

	t.Run("returns envelope for protocol errors", func(t *testing.T) {
		t.Parallel()

		_, err := srv.CallTool(context.Background(), "missing", nil)
		var perr *mcp.ProtocolError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *ProtocolError", err)
		}
		if perr.Envelope.Error.Code != mcperror.CodeToolNotFound || perr.Envelope.StatusCode != 404 {
			t.Errorf("envelope = %+v", perr.Envelope)
		}

		var decoded mcperror.ErrorResponse
		if err := json.Unmarshal([]byte(perr.Error()), &decoded); err != nil {
			t.Fatalf("Error() is not JSON: %v", err)
		}
		if !strings.Contains(decoded.Error.Message, "missing") {
			t.Errorf("message = %q", decoded.Error.Message)
		}
	})

	t.Run("validation failures are invalid params", func(t *testing.T) {
		t.Parallel()

		_, err := srv.CallTool(context.Background(), "echo", json.RawMessage(`{"message":""}`))
		var perr *mcp.ProtocolError
		if !errors.As(err, &perr) || perr.Envelope.Error.Code != mcperror.CodeInvalidParams {
			t.Errorf("error = %v, want INVALID_PARAMS", err)
		}
	})
}

func TestGeoServer_ServeUnknownTransport(t *testing.T) {
	t.Parallel()

	err := newServer(t).Serve(context.Background(), "carrier-pigeon", "")
	if !errors.Is(err, mcp.ErrUnknownTransport) {
		t.Errorf("Serve() error = %v, want ErrUnknownTransport", err)
	}
}

type advertisedSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]map[string]any `json:"properties"`
	Required   []string                  `json:"required"`
}

func decodeSchema(t *testing.T, v any) advertisedSchema {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal(schema) error = %v", err)
	}
	var s advertisedSchema
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}
	return s
}

func TestGeoServer_RegisteredToolSchema(t *testing.T) {
	t.Parallel()

	tools := newServer(t).Server().Tools()
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("Tools() = %+v, want only echo", tools)
	}

	got := decodeSchema(t, tools[0].InputSchema)
	if got.Type != "object" {
		t.Fatalf("inputSchema type = %q, want object", got.Type)
	}
	if got.Properties["message"]["type"] != "string" || got.Properties["times"]["type"] != "integer" {
		t.Errorf("properties = %v", got.Properties)
	}
	if len(got.Required) != 1 || got.Required[0] != "message" {
		t.Errorf("required = %v, want [message]", got.Required)
	}
	if tools[0].Description != "Echo the message" {
		t.Errorf("description = %q", tools[0].Description)
	}

	ann := tools[0].Annotations
	if ann == nil || ann.ReadOnlyHint == nil || !*ann.ReadOnlyHint {
		t.Fatalf("annotations = %+v, want read-only", ann)
	}
	if ann.IdempotentHint == nil || !*ann.IdempotentHint || ann.OpenWorldHint == nil || !*ann.OpenWorldHint {
		t.Errorf("annotations = %+v, want idempotent open world", ann)
	}
}

// newClient serves the server's request chain in memory.
func newClient(t *testing.T, srv *mcp.GeoServer) *testutil.TestClient {
	t.Helper()

	final := func(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
		return nil, protocol.NewMethodNotFound(req.Method)
	}
	handler := mcpgo.Chain(srv.Middleware()...)(final)
	return testutil.NewTestClientWithHandler(t, transport.HandlerFunc(handler))
}

func TestGeoServer_ToolsList(t *testing.T) {
	t.Parallel()

	tc := newClient(t, newServer(t))
	defer tc.Close()

	tools, err := tc.ListTools()
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 1 || tools[0]["name"] != "echo" {
		t.Fatalf("tools = %v", tools)
	}

	got := decodeSchema(t, tools[0]["inputSchema"])
	if got.Type != "object" || got.Properties["message"]["minLength"] != float64(1) {
		t.Errorf("inputSchema = %+v, want declared constraints", got)
	}
	times := got.Properties["times"]
	if times["minimum"] != float64(1) || times["maximum"] != float64(3) {
		t.Errorf("times = %v, want range [1,3]", times)
	}

	data, err := json.Marshal(tools[0]["annotations"])
	if err != nil {
		t.Fatalf("Marshal(annotations) error = %v", err)
	}
	if !strings.Contains(string(data), `"readOnlyHint":true`) {
		t.Errorf("annotations = %s", data)
	}
}

func TestGeoServer_ToolsCall(t *testing.T) {
	t.Parallel()

	tc := newClient(t, newServer(t))
	defer tc.Close()

	text, err := tc.CallTool("echo", map[string]any{"message": "hi", "times": 2})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !strings.Contains(text, `"message": "hi"`) || !strings.Contains(text, `"times": 2`) {
		t.Errorf("text = %s", text)
	}

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantCode int
		wantEnv  mcperror.Code
	}{
		{name: "invalid params", tool: "echo", args: map[string]any{"message": ""}, wantCode: protocol.CodeInvalidParams, wantEnv: mcperror.CodeInvalidParams},
		{name: "out of range", tool: "echo", args: map[string]any{"message": "hi", "times": 9}, wantCode: protocol.CodeInvalidParams, wantEnv: mcperror.CodeInvalidParams},
		{name: "unknown tool", tool: "missing", args: map[string]any{}, wantCode: protocol.CodeNotFound, wantEnv: mcperror.CodeToolNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tc.CallTool(tt.tool, tt.args)
			var rpcErr *protocol.Error
			if !errors.As(err, &rpcErr) {
				t.Fatalf("error = %v, want *protocol.Error", err)
			}
			if rpcErr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rpcErr.Code, tt.wantCode)
			}
			env, ok := rpcErr.Data.(mcperror.ErrorResponse)
			if !ok || env.Error.Code != tt.wantEnv {
				t.Errorf("data = %#v, want %s envelope", rpcErr.Data, tt.wantEnv)
			}
		})
	}
}

func TestGeoServer_RegisteredHandler(t *testing.T) {
	t.Parallel()

	tc := testutil.NewTestClient(t, newServer(t).Server())
	defer tc.Close()

	text, err := tc.CallTool("echo", map[string]any{"message": "direct"})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !strings.Contains(text, `"message": "direct"`) {
		t.Errorf("text = %s", text)
	}
}
