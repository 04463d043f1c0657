// Package mcp exposes the tool registry over the Model Context Protocol.
// It wraps github.com/felixgeelhaar/mcp-go.
package mcp

import (
	mcpgo "github.com/felixgeelhaar/mcp-go"
)

// Re-export core types from mcp-go for convenience.
type (
	// ServerInfo contains MCP server metadata.
	ServerInfo = mcpgo.ServerInfo

	// ServeOption configures server behavior.
	ServeOption = mcpgo.ServeOption

	// HTTPOption configures HTTP transport.
	HTTPOption = mcpgo.HTTPOption
)

// Re-export middleware constructors from mcp-go.
var (
	Recover   = mcpgo.Recover
	RequestID = mcpgo.RequestID
)
