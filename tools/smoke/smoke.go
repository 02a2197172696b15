// Package smoke provides tools for local testing that do not dispatch
// upstream requests.
package smoke

import (
	"context"

	"github.com/effective-security/xmcp/tools"
)

// PingRequest is the input of smoke_ping
type PingRequest struct {
	Message *string `json:"message,omitempty" jsonschema:"description=Message to echo back,default=pong"`
}

// PingResponse is the output of smoke_ping
type PingResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Ping echoes the message, pong when it is absent
func Ping(_ context.Context, req *PingRequest) (*PingResponse, error) {
	msg := "pong"
	if req.Message != nil {
		msg = *req.Message
	}
	return &PingResponse{
		OK:      true,
		Message: msg,
	}, nil
}

// PingTool is the smoke_ping tool
var PingTool = tools.MustFunc("smoke_ping", "Local smoke test tool that does not require enclave dispatch.", Ping)

// Tools returns smoke tools
func Tools() []tools.IMCPTool {
	return []tools.IMCPTool{PingTool}
}
