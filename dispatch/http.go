package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "dispatch")

// maxBodySize limits the upstream response body
const maxBodySize = 16 << 20

// HTTPDispatcher dispatches requests over HTTP,
// with credentials provided by SecretResolver
type HTTPDispatcher struct {
	connections connection.Map
	resolver    SecretResolver
	httpClient  *http.Client
	userAgent   string
}

// ensure HTTPDispatcher implements Dispatcher
var _ Dispatcher = (*HTTPDispatcher)(nil)

// NewHTTPDispatcher returns HTTPDispatcher for the connections,
// secrets are resolved from the environment unless WithResolver is used
func NewHTTPDispatcher(conns ...*connection.Connection) (*HTTPDispatcher, error) {
	m, err := connection.NewMap(conns...)
	if err != nil {
		return nil, err
	}
	return &HTTPDispatcher{
		connections: m,
		resolver:    EnvResolver{},
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		userAgent:   "xmcp",
	}, nil
}

// WithResolver sets the secret resolver
func (d *HTTPDispatcher) WithResolver(r SecretResolver) *HTTPDispatcher {
	d.resolver = r
	return d
}

// WithHTTPClient sets the HTTP client
func (d *HTTPDispatcher) WithHTTPClient(client *http.Client) *HTTPDispatcher {
	d.httpClient = client
	return d
}

// WithUserAgent sets the User-Agent header
func (d *HTTPDispatcher) WithUserAgent(ua string) *HTTPDispatcher {
	d.userAgent = ua
	return d
}

// Connections returns the configured connections
func (d *HTTPDispatcher) Connections() connection.Map {
	return d.connections
}

// Dispatch implements Dispatcher
func (d *HTTPDispatcher) Dispatch(ctx context.Context, name string, req *HTTPRequest) (*Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	method := string(req.Method)
	if method == "" {
		method = string(GET)
	}

	conn, ok := d.connections[name]
	if !ok {
		metricskey.StatsDispatchFailed.IncrCounter(1, name, method, CodeUnknownConnection)
		return Failure(CodeUnknownConnection, "unknown connection: "+name), nil
	}

	sv := d.resolver.Resolve(ctx, conn)
	if sv == nil {
		metricskey.StatsDispatchFailed.IncrCounter(1, name, method, CodeMissingCredentials)
		return Failure(CodeMissingCredentials, "missing credentials for connection "+name), nil
	}

	var body io.Reader
	if req.Body != nil {
		js, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		body = bytes.NewReader(js)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, conn.URL(req.Path), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if d.userAgent != "" {
		hreq.Header.Set("User-Agent", d.userAgent)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	hreq.Header.Set(conn.HeaderName(), conn.AuthHeaderValueFor(sv))

	started := time.Now()
	defer metricskey.PerfDispatch.MeasureSince(started, name)

	resp, err := d.httpClient.Do(hreq)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"connection", name,
			"method", method,
			"path", req.Path,
			"err", err.Error(),
		)
		metricskey.StatsDispatchFailed.IncrCounter(1, name, method, CodeTransport)
		return Failure(CodeTransport, err.Error()), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		metricskey.StatsDispatchFailed.IncrCounter(1, name, method, CodeTransport)
		return Failure(CodeTransport, "failed to read response: "+err.Error()), nil
	}

	hres := &HTTPResponse{
		Status:  resp.StatusCode,
		Headers: flattenHeaders(resp.Header),
		Body:    decodeBody(raw),
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"connection", name,
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(started).String(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metricskey.StatsDispatchSucceeded.IncrCounter(1, name, method)
		return &Response{Success: true, Response: hres}, nil
	}

	msg := errorMessage(hres.Body, resp.StatusCode)
	logger.ContextKV(ctx, xlog.INFO,
		"connection", name,
		"path", req.Path,
		"status", resp.StatusCode,
		"reason", slices.StringUpto(msg, 256),
	)
	metricskey.StatsDispatchFailed.IncrCounter(1, name, method, strconv.Itoa(resp.StatusCode))

	return &Response{
		Response: hres,
		Error:    &Error{Code: CodeUpstream, Message: msg},
	}, nil
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	m := make(map[string]string, len(h))
	for k, v := range h {
		m[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return m
}

func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// errorMessage returns message of the upstream error body:
// detail, title, error, or errors[0].message,
// falling back to HTTP <status>
func errorMessage(body any, status int) string {
	switch b := body.(type) {
	case map[string]any:
		for _, key := range []string{"detail", "title", "error", "message"} {
			if s, ok := b[key].(string); ok && s != "" {
				return s
			}
		}
		if list, ok := b["errors"].([]any); ok && len(list) > 0 {
			if e, ok := list[0].(map[string]any); ok {
				for _, key := range []string{"message", "detail", "title"} {
					if s, ok := e[key].(string); ok && s != "" {
						return s
					}
				}
			}
		}
	case string:
		if s := strings.TrimSpace(b); s != "" && len(s) < 512 {
			return s
		}
	}
	return "HTTP " + strconv.Itoa(status)
}
