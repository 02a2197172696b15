// Package client is a thin MCP client over streamable HTTP.
package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "client")

// DefaultURL is the URL of a locally served MCP server
const DefaultURL = "http://localhost:8080/mcp"

// Client is a connected MCP client session
type Client struct {
	session *mcp.ClientSession
}

type options struct {
	name       string
	version    string
	httpClient *http.Client
	token      string
	transport  mcp.Transport
}

// Option configures Connect
type Option func(*options)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithBearerToken sets Authorization header on every request
func WithBearerToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithImplementation sets the client name and version reported to the server
func WithImplementation(name, version string) Option {
	return func(o *options) {
		o.name = name
		o.version = version
	}
}

// WithTransport connects over the transport instead of HTTP,
// used with in-memory transports
func WithTransport(t mcp.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// Connect connects to the MCP server at url
func Connect(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := options{
		name:       "xmcp-client",
		version:    "0.1.0",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		if url == "" {
			return nil, errors.New("server URL is required")
		}
		hc := o.httpClient
		if o.token != "" {
			hc = &http.Client{
				Timeout:   o.httpClient.Timeout,
				Transport: &bearerTransport{token: o.token, base: o.httpClient.Transport},
			}
		}
		transport = &mcp.StreamableClientTransport{
			Endpoint:   url,
			HTTPClient: hc,
		}
	}

	c := mcp.NewClient(&mcp.Implementation{Name: o.name, Version: o.version}, nil)
	session, err := c.Connect(ctx, transport, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", url)
	}

	logger.ContextKV(ctx, xlog.DEBUG, "status", "connected", "url", url)
	return &Client{session: session}, nil
}

// Session returns the underlying MCP session
func (c *Client) Session() *mcp.ClientSession {
	return c.session
}

// ListTools returns all tools, following pagination cursors
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	var list []*mcp.Tool
	params := &mcp.ListToolsParams{}
	for {
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list tools")
		}
		list = append(list, res.Tools...)
		if res.NextCursor == "" {
			return list, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// CallTool calls the tool with arguments
func (c *Client) CallTool(ctx context.Context, name string, args any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s", name)
	}
	return res, nil
}

// CallToolText calls the tool and returns its text content,
// a tool error is returned as Go error
func (c *Client) CallToolText(ctx context.Context, name string, args any) (string, error) {
	res, err := c.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	text := Text(res)
	if res.IsError {
		return "", errors.Newf("tool %s failed: %s", name, text)
	}
	return text, nil
}

// Close closes the session
func (c *Client) Close() error {
	return c.session.Close()
}

// Text returns concatenated text content of the result
func Text(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
