package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
)

// ProtectedResourcePath is the RFC 9728 metadata path
const ProtectedResourcePath = "/.well-known/oauth-protected-resource"

// ProtectedResourceMetadata is the OAuth 2.0 Protected Resource Metadata (RFC 9728)
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
}

// Handler returns HTTP handler with MCP endpoint, health check
// and protected resource metadata
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.cfg.Path, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{
		Stateless: s.cfg.Stateless,
	}))

	if s.cfg.AuthorizationServer != "" {
		h := s.protectedResourceHandler()
		mux.Handle(ProtectedResourcePath, h)
		mux.Handle(ProtectedResourcePath+s.cfg.Path, h)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"name":   s.cfg.Name,
			"tools":  len(s.ToolNames()),
		})
	})

	var h http.Handler = mux
	if s.cfg.HTTPSecurity.EnableDNSRebindingProtection {
		h = hostGuard(s.cfg.HTTPSecurity, h)
	}
	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: append([]string{"Authorization", "Content-Type", "Accept", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
				s.cfg.CORS.AllowedHeaders...),
			ExposedHeaders: []string{"Mcp-Session-Id"},
		}).Handler(h)
	}
	return h
}

func (s *Server) protectedResourceHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, &ProtectedResourceMetadata{
			Resource:               baseURL(r) + s.cfg.Path,
			AuthorizationServers:   []string{s.cfg.AuthorizationServer},
			BearerMethodsSupported: []string{"header"},
			ResourceName:           s.cfg.Name,
		})
	})
}

// Serve listens on the configured address until ctx is done
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.cfg.Addr)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done,
// then shuts down gracefully
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.KV(xlog.INFO,
		"status", "serving",
		"url", "http://"+ln.Addr().String()+s.cfg.Path,
		"tools", len(s.ToolNames()),
	)

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// hostGuard rejects requests with Host or Origin headers not in the allow list
func hostGuard(cfg HTTPSecurity, next http.Handler) http.Handler {
	hosts := cfg.AllowedHosts
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hostAllowed(r.Host, hosts) {
			logger.KV(xlog.WARNING, "reason", "host_not_allowed", "host", r.Host)
			http.Error(w, "invalid Host header", http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" && !originAllowed(origin, cfg.AllowedOrigins, hosts) {
			logger.KV(xlog.WARNING, "reason", "origin_not_allowed", "origin", origin)
			http.Error(w, "invalid Origin header", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hostAllowed(hostport string, allowed []string) bool {
	if hostport == "" {
		return false
	}
	if slices.Contains(allowed, hostport) {
		return true
	}
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return slices.Contains(allowed, host)
}

func originAllowed(origin string, origins, hosts []string) bool {
	if len(origins) > 0 {
		return slices.Contains(origins, origin)
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return hostAllowed(u.Host, hosts)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
