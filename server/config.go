package server

import (
	"github.com/effective-security/x/values"
)

// Defaults
const (
	DefaultName    = "x-mcp"
	DefaultVersion = "0.1.0"
	DefaultAddr    = ":8080"
	DefaultPath    = "/mcp"
)

// DefaultAllowedHosts are allowed when DNS rebinding protection
// is enabled without explicit hosts
var DefaultAllowedHosts = []string{"localhost", "127.0.0.1", "::1"}

// Config of the MCP server
type Config struct {
	// Name of the server reported in the MCP handshake
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	// Version of the server reported in the MCP handshake
	Version string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	// Addr to listen on
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty"`
	// Path of the MCP endpoint
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	// AuthorizationServer is advertised in the protected resource metadata
	AuthorizationServer string `json:"authorization_server,omitempty" yaml:"authorization_server,omitempty" toml:"authorization_server,omitempty" validate:"omitempty,url"`
	// Stateless disables MCP session tracking on the HTTP transport
	Stateless bool `json:"stateless,omitempty" yaml:"stateless,omitempty" toml:"stateless,omitempty"`

	HTTPSecurity HTTPSecurity `json:"http_security" yaml:"http_security" toml:"http_security"`
	CORS         CORS         `json:"cors" yaml:"cors" toml:"cors"`
}

// HTTPSecurity configures transport security of the HTTP endpoint
type HTTPSecurity struct {
	// EnableDNSRebindingProtection validates Host and Origin headers
	EnableDNSRebindingProtection bool `json:"enable_dns_rebinding_protection" yaml:"enable_dns_rebinding_protection" toml:"enable_dns_rebinding_protection"`
	// AllowedHosts are host names, or host:port, accepted in the Host header
	AllowedHosts []string `json:"allowed_hosts,omitempty" yaml:"allowed_hosts,omitempty" toml:"allowed_hosts,omitempty"`
	// AllowedOrigins are origins accepted in the Origin header
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" toml:"allowed_origins,omitempty"`
}

// CORS configures cross-origin access
type CORS struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" toml:"allowed_origins,omitempty"`
	AllowedHeaders []string `json:"allowed_headers,omitempty" yaml:"allowed_headers,omitempty" toml:"allowed_headers,omitempty"`
}

// SetDefaults fills empty values
func (c *Config) SetDefaults() {
	c.Name = values.StringsCoalesce(c.Name, DefaultName)
	c.Version = values.StringsCoalesce(c.Version, DefaultVersion)
	c.Addr = values.StringsCoalesce(c.Addr, DefaultAddr)
	c.Path = values.StringsCoalesce(c.Path, DefaultPath)
	if c.HTTPSecurity.EnableDNSRebindingProtection && len(c.HTTPSecurity.AllowedHosts) == 0 {
		c.HTTPSecurity.AllowedHosts = DefaultAllowedHosts
	}
}
