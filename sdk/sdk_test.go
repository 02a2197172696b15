package sdk_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/effective-security/xmcp/sdk"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves JWKS and chat completions
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server
	key *rsa.PrivateKey

	lock      sync.Mutex
	responses []string
	requests  []map[string]any
	jwksCalls int
}

func newFakeAPI(t *testing.T, responses ...string) *fakeAPI {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeAPI{t: t, key: key, responses: responses}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		f.lock.Lock()
		f.jwksCalls++
		f.lock.Unlock()

		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &key.PublicKey, KeyID: "sig-key", Algorithm: "RS256", Use: "sig"},
			{Key: &key.PublicKey, KeyID: "enc-key", Algorithm: "RSA-OAEP-256", Use: "enc"},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)

		f.lock.Lock()
		defer f.lock.Unlock()
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
			return
		}

		f.requests = append(f.requests, req)
		if len(f.responses) == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"no more responses"}}`))
			return
		}
		resp := f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T) *sdk.Client {
	c, err := sdk.NewClient(sdk.Config{
		APIKey:    "test-key",
		BaseURL:   f.srv.URL,
		ASBaseURL: f.srv.URL,
	})
	require.NoError(t, err)
	return c
}

func (f *fakeAPI) Requests() []map[string]any {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.requests
}

func (f *fakeAPI) JWKSCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.jwksCalls
}

func (f *fakeAPI) decrypt(t *testing.T, compact string) []byte {
	obj, err := jose.ParseEncrypted(compact,
		[]jose.KeyAlgorithm{jose.RSA_OAEP_256},
		[]jose.ContentEncryption{jose.A256GCM})
	require.NoError(t, err)
	plain, err := obj.Decrypt(f.key)
	require.NoError(t, err)
	return plain
}

func completion(content string, usage string) string {
	return `{"id":"c1","object":"chat.completion","created":1,"model":"openai/gpt-4.1",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + quote(content) + `}}],
"usage":` + usage + `}`
}

func toolCallCompletion(id, name, args string) string {
	return `{"id":"c2","object":"chat.completion","created":1,"model":"openai/gpt-4.1",
"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
"tool_calls":[{"id":` + quote(id) + `,"type":"function","function":{"name":` + quote(name) + `,"arguments":` + quote(args) + `}}]}}],
"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
}

func quote(s string) string {
	js, _ := json.Marshal(s)
	return string(js)
}
