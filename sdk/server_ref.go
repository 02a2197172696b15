package sdk

import (
	"os"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xmcp/connection"
)

// EnvMCPServerURL overrides the URL of MCP servers for local testing
const EnvMCPServerURL = "MCP_SERVER_URL"

// MCPServerRef refers to a hosted MCP server by marketplace slug,
// or directly by URL
type MCPServerRef struct {
	// Name is the marketplace slug, for example "windsor/example-dedalus-mcp"
	Name string `json:"name"`
	// URL of the server, takes precedence over Name
	URL string `json:"url,omitempty"`
	// Connections the server requires credentials for
	Connections []string `json:"connections,omitempty"`
}

// NewMCPServerRef returns reference to the server,
// MCP_SERVER_URL environment sets its URL
func NewMCPServerRef(name string, conns ...*connection.Connection) *MCPServerRef {
	ref := &MCPServerRef{
		Name: name,
		URL:  os.Getenv(EnvMCPServerURL),
	}
	for _, c := range conns {
		ref.Connections = append(ref.Connections, c.Name)
	}
	return ref
}

// Target returns URL when set, otherwise Name
func (r *MCPServerRef) Target() string {
	return values.StringsCoalesce(r.URL, r.Name)
}
