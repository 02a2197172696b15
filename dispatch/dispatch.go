// Package dispatch forwards tool requests to upstream connections.
//
// Tools never talk to the network directly: they build an HTTPRequest
// with a path relative to the connection base URL and hand it to the
// Dispatcher bound to the request context. The Dispatcher attaches
// credentials and maps the upstream response.
package dispatch

import (
	"context"
)

//go:generate mockgen -source=dispatch.go -destination=../mocks/mockdispatch/dispatch_mock.gen.go -package mockdispatch

// HTTPMethod is the method of the upstream request
type HTTPMethod string

// Supported methods
const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	PATCH  HTTPMethod = "PATCH"
	DELETE HTTPMethod = "DELETE"
)

// HTTPRequest describes the upstream request
type HTTPRequest struct {
	Method HTTPMethod `json:"method"`
	// Path is relative to the connection base URL and may include a query
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// HTTPResponse describes the upstream response
type HTTPResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	// Body is decoded JSON when possible, raw string otherwise
	Body any `json:"body,omitempty"`
}

// Error describes dispatch failure
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Response is the outcome of Dispatch
type Response struct {
	Success  bool          `json:"success"`
	Response *HTTPResponse `json:"response,omitempty"`
	Error    *Error        `json:"error,omitempty"`
}

// ErrorMessage returns the failure message, or empty string
func (r *Response) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// Failure returns failed Response
func Failure(code, msg string) *Response {
	return &Response{
		Error: &Error{Code: code, Message: msg},
	}
}

// Error codes
const (
	CodeUnknownConnection  = "unknown_connection"
	CodeMissingCredentials = "missing_credentials"
	CodeTransport          = "transport"
	CodeUpstream           = "upstream"
)

// Dispatcher sends requests to named connections
type Dispatcher interface {
	// Dispatch sends the request to the connection.
	// Upstream and transport failures are returned as failed Response,
	// the error is returned only for invalid use.
	Dispatch(ctx context.Context, connection string, req *HTTPRequest) (*Response, error)
}
