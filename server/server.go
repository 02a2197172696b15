// Package server hosts tools on an MCP server over streamable HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
	"github.com/effective-security/xmcp/pkg/metricskey"
	"github.com/effective-security/xmcp/tools"
	"github.com/effective-security/xmcp/utils"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/puzpuzpuz/xsync"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "server")

var (
	// ErrToolNotFound is returned when calling unregistered tool
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned when registering a tool twice
	ErrDuplicateTool = errors.New("tool already registered")
)

type registeredTool struct {
	name        string
	description string
	schema      map[string]any
	handler     tools.ToolHandler
}

// Server is an MCP server with tools bound to upstream connections
type Server struct {
	cfg         Config
	mcp         *mcp.Server
	dispatcher  dispatch.Dispatcher
	connections connection.Map
	tools       *xsync.MapOf[string, *registeredTool]
}

// ensure Server implements tools.Registrator
var _ tools.Registrator = (*Server)(nil)

type options struct {
	dispatcher dispatch.Dispatcher
	resolver   dispatch.SecretResolver
	httpClient *http.Client
}

// Option configures the Server
type Option func(*options)

// WithDispatcher replaces the HTTP dispatcher
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithResolver sets the secret resolver of the HTTP dispatcher
func WithResolver(r dispatch.SecretResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithHTTPClient sets the HTTP client of the HTTP dispatcher
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// New returns MCP server for the connections
func New(cfg Config, conns []*connection.Connection, opts ...Option) (*Server, error) {
	cfg.SetDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m, err := connection.NewMap(conns...)
	if err != nil {
		return nil, err
	}

	d := o.dispatcher
	if d == nil {
		hd, err := dispatch.NewHTTPDispatcher(conns...)
		if err != nil {
			return nil, err
		}
		hd.WithUserAgent(cfg.Name + "/" + cfg.Version)
		if o.resolver != nil {
			hd.WithResolver(o.resolver)
		}
		if o.httpClient != nil {
			hd.WithHTTPClient(o.httpClient)
		}
		d = hd
	}

	s := &Server{
		cfg:         cfg,
		dispatcher:  d,
		connections: m,
		tools:       xsync.NewMapOf[*registeredTool](),
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
	}

	logger.KV(xlog.INFO,
		"name", cfg.Name,
		"version", cfg.Version,
		"connections", m.Names(),
	)
	return s, nil
}

// Config returns the server configuration
func (s *Server) Config() Config {
	return s.cfg
}

// MCP returns the underlying MCP server
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Connections returns the server connections
func (s *Server) Connections() connection.Map {
	return s.connections
}

// Collect registers the tools
func (s *Server) Collect(list ...tools.IMCPTool) error {
	for _, t := range list {
		if err := t.RegisterMCP(s); err != nil {
			return errors.WithMessagef(err, "failed to register %s", t.Name())
		}
	}
	return nil
}

// AddTool implements tools.Registrator
func (s *Server) AddTool(name, description string, inputSchema map[string]any, handler tools.ToolHandler) error {
	if name == "" || handler == nil {
		return errors.New("tool name and handler are required")
	}
	if inputSchema == nil {
		inputSchema = map[string]any{"type": "object"}
	}

	rt := &registeredTool{
		name:        name,
		description: description,
		schema:      inputSchema,
		handler:     handler,
	}
	if _, loaded := s.tools.LoadOrStore(name, rt); loaded {
		return errors.Wrapf(ErrDuplicateTool, "%s", name)
	}

	s.mcp.AddTool(&mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		return s.invoke(ctx, rt, args), nil
	})

	logger.KV(xlog.DEBUG, "tool", name)
	return nil
}

// ToolNames returns sorted names of registered tools
func (s *Server) ToolNames() []string {
	var names []string
	s.tools.Range(func(name string, _ *registeredTool) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// CallTool invokes registered tool in-process,
// args is a JSON object or a value marshaled to one
func (s *Server) CallTool(ctx context.Context, name string, args any) (*mcp.CallToolResult, error) {
	rt, ok := s.tools.Load(name)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		return nil, errors.Wrapf(ErrToolNotFound, "%s", name)
	}

	var raw json.RawMessage
	switch a := args.(type) {
	case nil:
	case json.RawMessage:
		raw = a
	case []byte:
		raw = a
	case string:
		raw = json.RawMessage(a)
	default:
		js, err := json.Marshal(args)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal arguments")
		}
		raw = js
	}

	return s.invoke(ctx, rt, raw), nil
}

// invoke runs the tool with the dispatcher bound to ctx,
// errors are reported as tool errors
func (s *Server) invoke(ctx context.Context, rt *registeredTool, args json.RawMessage) *mcp.CallToolResult {
	ctx = dispatch.WithDispatcher(ctx, s.dispatcher)

	started := time.Now()
	out, err := rt.handler(ctx, args)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"tool", rt.name,
			"elapsed", time.Since(started).String(),
			"err", err.Error(),
		)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", rt.name,
		"elapsed", time.Since(started).String(),
	)

	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: utils.ToJSON(out)}},
	}
	if m, err := utils.ToMap(out); err == nil {
		res.StructuredContent = m
	}
	return res
}
