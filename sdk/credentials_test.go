package sdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealCredentials(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(t)
	ctx := context.Background()

	sealed, err := c.SealCredentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	gh, err := connection.NewSecretValues(connection.GitHub, map[string]string{"token": "ghp_test"})
	require.NoError(t, err)
	sb, err := connection.NewSecretValues(connection.Supabase("https://proj.supabase.co"), map[string]string{"key": "sb_test"})
	require.NoError(t, err)

	sealed, err = c.SealCredentials(ctx, gh, sb)
	require.NoError(t, err)
	require.Len(t, sealed, 2)

	assert.Equal(t, "github", sealed[0].Connection)
	assert.Equal(t, "enc-key", sealed[0].KeyID)
	assert.NotContains(t, sealed[0].Ciphertext, "ghp_test")

	var payload struct {
		Connection string            `json:"connection"`
		Values     map[string]string `json:"values"`
	}
	require.NoError(t, json.Unmarshal(api.decrypt(t, sealed[0].Ciphertext), &payload))
	assert.Equal(t, "github", payload.Connection)
	assert.Equal(t, map[string]string{"token": "ghp_test"}, payload.Values)

	require.NoError(t, json.Unmarshal(api.decrypt(t, sealed[1].Ciphertext), &payload))
	assert.Equal(t, "supabase", payload.Connection)
	assert.Equal(t, "sb_test", payload.Values["key"])

	// key is cached
	_, err = c.SealCredentials(ctx, gh)
	require.NoError(t, err)
	assert.Equal(t, 1, api.JWKSCalls())

	_, err = c.SealCredentials(ctx, nil)
	assert.EqualError(t, err, "secret values are nil")
}

func TestSealCredentials_JWKSErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing/.well-known/jwks.json":
			w.WriteHeader(http.StatusNotFound)
		case "/empty/.well-known/jwks.json":
			_, _ = w.Write([]byte(`{"keys":[]}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	gh, err := connection.NewSecretValues(connection.GitHub, map[string]string{"token": "t"})
	require.NoError(t, err)

	tcases := []struct {
		path string
		exp  string
	}{
		{"/missing", "HTTP 404"},
		{"/empty", "no RSA encryption key in JWKS"},
		{"/bad", "failed to decode JWKS"},
	}
	for _, tc := range tcases {
		t.Run(tc.path, func(t *testing.T) {
			c, err := sdk.NewClient(sdk.Config{
				APIKey:    "k",
				BaseURL:   srv.URL,
				ASBaseURL: srv.URL + tc.path,
			})
			require.NoError(t, err)

			_, err = c.SealCredentials(context.Background(), gh)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.exp)
		})
	}
}
