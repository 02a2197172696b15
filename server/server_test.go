package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xmcp/client"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
	"github.com/effective-security/xmcp/mocks/mockdispatch"
	"github.com/effective-security/xmcp/server"
	"github.com/effective-security/xmcp/tools/smoke"
	"github.com/effective-security/xmcp/tools/x"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var userResponse = &dispatch.Response{
	Success: true,
	Response: &dispatch.HTTPResponse{
		Status: 200,
		Body: map[string]any{
			"data": map[string]any{"id": "2244994945", "username": "xdevelopers", "name": "Developers"},
		},
	},
}

func newServer(t *testing.T, cfg server.Config, d dispatch.Dispatcher) *server.Server {
	t.Helper()
	s, err := server.New(cfg, []*connection.Connection{connection.X}, server.WithDispatcher(d))
	require.NoError(t, err)
	require.NoError(t, s.Collect(smoke.Tools()...))
	require.NoError(t, s.Collect(x.Tools()...))
	return s
}

func Test_New(t *testing.T) {
	s, err := server.New(server.Config{}, []*connection.Connection{connection.X})
	require.NoError(t, err)

	cfg := s.Config()
	assert.Equal(t, "x-mcp", cfg.Name)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/mcp", cfg.Path)
	assert.Equal(t, []string{"x"}, s.Connections().Names())
	assert.NotNil(t, s.MCP())

	_, err = server.New(server.Config{}, []*connection.Connection{connection.X, connection.X})
	assert.EqualError(t, err, "duplicate connection: x")
}

func Test_Collect(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newServer(t, server.Config{}, mockdispatch.NewMockDispatcher(ctrl))

	names := s.ToolNames()
	assert.Len(t, names, 15)
	assert.Contains(t, names, "smoke_ping")
	assert.Contains(t, names, "x_get_user_lists")

	err := s.Collect(smoke.PingTool)
	require.Error(t, err)
	assert.True(t, errors.Is(err, server.ErrDuplicateTool))
	assert.Contains(t, err.Error(), "smoke_ping")

	assert.EqualError(t, s.AddTool("", "", nil, nil), "tool name and handler are required")
}

func Test_CallTool(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	d := mockdispatch.NewMockDispatcher(ctrl)
	s := newServer(t, server.Config{}, d)

	res, err := s.CallTool(ctx, "smoke_ping", nil)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, `{"ok":true,"message":"pong"}`, client.Text(res))
	assert.Equal(t, map[string]any{"ok": true, "message": "pong"}, res.StructuredContent)

	d.EXPECT().Dispatch(gomock.Any(), "x", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, req *dispatch.HTTPRequest) (*dispatch.Response, error) {
			// dispatcher is bound to the tool context
			bound, err := dispatch.FromContext(ctx)
			assert.NoError(t, err)
			assert.Same(t, d, bound)
			assert.Equal(t, "/users/by/username/xdevelopers?user.fields=description%2Cpublic_metrics%2Ccreated_at", req.Path)
			return userResponse, nil
		})

	res, err = s.CallTool(ctx, "x_get_user_by_username", map[string]string{"username": "xdevelopers"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	var xres x.XResult
	require.NoError(t, json.Unmarshal([]byte(client.Text(res)), &xres))
	assert.True(t, xres.Success)

	var user x.User
	require.NoError(t, xres.Decode(&user))
	assert.Equal(t, "xdevelopers", user.Username)

	// local validation failure is a normal result
	res, err = s.CallTool(ctx, "x_get_users", `{"user_ids":[`+repeatIDs(101)+`]}`)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"success":false,"error":"Maximum 100 user IDs allowed"}`, client.Text(res))

	// input errors are tool errors
	res, err = s.CallTool(ctx, "x_get_user", "not json")
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "failed to unmarshal input: check the schema and try again", client.Text(res))

	_, err = s.CallTool(ctx, "x_post_tweet", nil)
	assert.True(t, errors.Is(err, server.ErrToolNotFound))
}

func repeatIDs(n int) string {
	js, _ := json.Marshal(make([]string, n))
	return string(js[1 : len(js)-1])
}

func Test_InMemory(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	d := mockdispatch.NewMockDispatcher(ctrl)
	d.EXPECT().Dispatch(gomock.Any(), "x", gomock.Any()).Return(dispatch.Failure(dispatch.CodeUpstream, "Unauthorized"), nil)

	s := newServer(t, server.Config{}, d)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, st, nil)
	require.NoError(t, err)
	defer ss.Close()

	c, err := client.Connect(ctx, "", client.WithTransport(ct))
	require.NoError(t, err)
	defer c.Close()

	list, err := c.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 15)

	text, err := c.CallToolText(ctx, "x_get_tweet", map[string]any{"tweet_id": "20"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, text)

	_, err = c.CallToolText(ctx, "x_get_tweet", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool x_get_tweet failed: invalid input")
}

func Test_HTTP(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	d := mockdispatch.NewMockDispatcher(ctrl)
	d.EXPECT().Dispatch(gomock.Any(), "x", gomock.Any()).Return(userResponse, nil)

	s := newServer(t, server.Config{
		AuthorizationServer: "https://as.example.com",
		HTTPSecurity: server.HTTPSecurity{
			EnableDNSRebindingProtection: true,
		},
	}, d)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c, err := client.Connect(ctx, srv.URL+"/mcp", client.WithHTTPClient(srv.Client()), client.WithBearerToken("token"))
	require.NoError(t, err)
	defer c.Close()

	list, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, list, 15)

	text, err := c.CallToolText(ctx, "x_get_user_by_username", map[string]any{"username": "xdevelopers"})
	require.NoError(t, err)
	assert.Contains(t, text, `"username":"xdevelopers"`)

	t.Run("healthz", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("protected resource", func(t *testing.T) {
		for _, path := range []string{server.ProtectedResourcePath, server.ProtectedResourcePath + "/mcp"} {
			resp, err := srv.Client().Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var md server.ProtectedResourceMetadata
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&md))
			assert.Equal(t, srv.URL+"/mcp", md.Resource)
			assert.Equal(t, []string{"https://as.example.com"}, md.AuthorizationServers)
			assert.Equal(t, []string{"header"}, md.BearerMethodsSupported)
		}
	})

	t.Run("dns rebinding", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Host = "attacker.example.com"
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		req, err = http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://attacker.example.com")
		resp, err = srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		req, err = http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err = srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func Test_NoSecurity(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newServer(t, server.Config{
		CORS: server.CORS{AllowedOrigins: []string{"https://app.example.com"}},
	}, mockdispatch.NewMockDispatcher(ctrl))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Host = "any.example.com"
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	// metadata is served only with authorization server
	resp2, err := srv.Client().Get(srv.URL + server.ProtectedResourcePath)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func Test_Serve(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newServer(t, server.Config{Addr: "127.0.0.1:0"}, mockdispatch.NewMockDispatcher(ctrl))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()
	cancel()
	assert.NoError(t, <-done)
}
