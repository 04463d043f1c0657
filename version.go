// Package geomcp provides the version information for geo-mcp.
package geomcp

// Version is the current release of geo-mcp. It is reported as the MCP
// server version unless the binary is built with a different one.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
