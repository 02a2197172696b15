package dispatch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"title":"Unauthorized","type":"about:blank","status":401,"detail":"Unauthorized"}`))
			return
		}
		switch r.URL.Path {
		case "/2/users/by/username/xdevelopers":
			assert.Equal(t, "description,public_metrics", r.URL.Query().Get("user.fields"))
			_, _ = w.Write([]byte(`{"data":{"id":"2244994945","name":"Developers","username":"xdevelopers"}}`))
		case "/2/tweets":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"1","text":"` + body["text"].(string) + `"}}`))
		case "/2/users/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[{"message":"Could not find user with id: [404]."}]}`))
		case "/2/text":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain text"))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func Test_HTTPDispatcher(t *testing.T) {
	token := gofakeit.UUID()
	srv := newUpstream(t, token)

	conn := &connection.Connection{
		Name:    "x",
		Secrets: connection.SecretKeys{"token": "XMCP_TEST_TOKEN"},
		BaseURL: srv.URL + "/2",
	}
	t.Setenv("XMCP_TEST_TOKEN", token)

	d, err := dispatch.NewHTTPDispatcher(conn)
	require.NoError(t, err)
	d.WithHTTPClient(srv.Client())
	assert.Equal(t, []string{"x"}, d.Connections().Names())

	ctx := context.Background()

	_, err = d.Dispatch(ctx, "x", nil)
	assert.EqualError(t, err, "request is nil")

	t.Run("success", func(t *testing.T) {
		res, err := d.Dispatch(ctx, "x", &dispatch.HTTPRequest{
			Method: dispatch.GET,
			Path:   dispatch.BuildPath("/users/by/username/xdevelopers", map[string]string{"user.fields": "description,public_metrics"}),
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, http.StatusOK, res.Response.Status)
		assert.Equal(t, "application/json", res.Response.Headers["content-type"])
		data := res.Response.Body.(map[string]any)["data"].(map[string]any)
		assert.Equal(t, "xdevelopers", data["username"])
	})

	t.Run("post body", func(t *testing.T) {
		res, err := d.Dispatch(ctx, "x", &dispatch.HTTPRequest{
			Method: dispatch.POST,
			Path:   "/tweets",
			Body:   map[string]string{"text": "hello"},
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, http.StatusCreated, res.Response.Status)
	})

	t.Run("not found", func(t *testing.T) {
		res, err := d.Dispatch(ctx, "x", &dispatch.HTTPRequest{Path: "/users/404"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Could not find user with id: [404].", res.ErrorMessage())
		assert.Equal(t, dispatch.CodeUpstream, res.Error.Code)
		assert.Equal(t, http.StatusNotFound, res.Response.Status)
	})

	t.Run("status only", func(t *testing.T) {
		res, err := d.Dispatch(ctx, "x", &dispatch.HTTPRequest{Path: "/unknown"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "HTTP 429", res.ErrorMessage())
	})

	t.Run("raw body", func(t *testing.T) {
		res, err := d.Dispatch(ctx, "x", &dispatch.HTTPRequest{Path: "/text"})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, "plain text", res.Response.Body)
	})

	t.Run("unknown connection", func(t *testing.T) {
		res, err := d.Dispatch(ctx, "github", &dispatch.HTTPRequest{Path: "/user"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "unknown connection: github", res.ErrorMessage())
	})

	t.Run("unauthorized", func(t *testing.T) {
		sv, err := connection.NewSecretValues(conn, map[string]string{"token": "wrong"})
		require.NoError(t, err)
		d2, err := dispatch.NewHTTPDispatcher(conn)
		require.NoError(t, err)
		d2.WithHTTPClient(srv.Client()).WithResolver(dispatch.NewStaticResolver(sv))

		res, err := d2.Dispatch(ctx, "x", &dispatch.HTTPRequest{Path: "/users/by/username/xdevelopers"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Unauthorized", res.ErrorMessage())
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("XMCP_TEST_TOKEN", "")
		res, err := d.Dispatch(ctx, "x", &dispatch.HTTPRequest{Path: "/users/by/username/xdevelopers"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "missing credentials for connection x", res.ErrorMessage())
	})
}

func Test_HTTPDispatcher_Transport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	conn := &connection.Connection{
		Name:    "down",
		Secrets: connection.SecretKeys{"token": "XMCP_DOWN_TOKEN"},
		BaseURL: baseURL,
	}
	sv, err := connection.NewSecretValues(conn, map[string]string{"token": "t"})
	require.NoError(t, err)

	d, err := dispatch.NewHTTPDispatcher(conn)
	require.NoError(t, err)
	d.WithResolver(dispatch.NewStaticResolver(sv)).WithUserAgent("test")

	res, err := d.Dispatch(context.Background(), "down", &dispatch.HTTPRequest{Path: "/"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, dispatch.CodeTransport, res.Error.Code)
	assert.NotEmpty(t, res.ErrorMessage())
}

func Test_Resolvers(t *testing.T) {
	ctx := context.Background()
	conn := connection.GitHub

	t.Setenv("GITHUB_TOKEN", "")
	assert.Nil(t, dispatch.EnvResolver{}.Resolve(ctx, conn))

	sv, err := connection.NewSecretValues(conn, map[string]string{"token": "static"})
	require.NoError(t, err)

	chain := dispatch.ChainResolver{dispatch.EnvResolver{}, dispatch.NewStaticResolver(sv)}
	got := chain.Resolve(ctx, conn)
	require.NotNil(t, got)
	assert.Equal(t, "static", got.Primary())

	t.Setenv("GITHUB_TOKEN", "env")
	got = chain.Resolve(ctx, conn)
	require.NotNil(t, got)
	assert.Equal(t, "env", got.Primary())

	assert.Nil(t, dispatch.NewStaticResolver().Resolve(ctx, conn))
	assert.Nil(t, dispatch.ChainResolver{}.Resolve(ctx, conn))
}
