package sdk

import (
	"context"

	"github.com/effective-security/xmcp/tools"
	"github.com/openai/openai-go/v3"
)

// Callback receives runner lifecycle events
type Callback interface {
	tools.Callback

	OnRunStart(ctx context.Context, params *RunParams)
	OnRunEnd(ctx context.Context, params *RunParams, res *RunResult)
	OnRunError(ctx context.Context, params *RunParams, err error)
	OnModelCallStart(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion)
	OnModelCallEnd(ctx context.Context, model string, completion *openai.ChatCompletion)
	OnToolNotFound(ctx context.Context, tool string)
}

// RunInfo identifies the run in the context passed to callbacks
type RunInfo struct {
	RunID     string
	SessionID string
	Model     string
}

type contextKey struct{}

var keyRunInfo = contextKey{}

// WithRunInfo returns context with the run info
func WithRunInfo(ctx context.Context, info *RunInfo) context.Context {
	return context.WithValue(ctx, keyRunInfo, info)
}

// RunInfoFromContext returns run info, or nil
func RunInfoFromContext(ctx context.Context) *RunInfo {
	v, _ := ctx.Value(keyRunInfo).(*RunInfo)
	return v
}

type noopCallback struct{}

func (noopCallback) OnToolStart(context.Context, tools.ITool, string)        {}
func (noopCallback) OnToolEnd(context.Context, tools.ITool, string, string)  {}
func (noopCallback) OnToolError(context.Context, tools.ITool, string, error) {}
func (noopCallback) OnRunStart(context.Context, *RunParams)                  {}
func (noopCallback) OnRunEnd(context.Context, *RunParams, *RunResult)        {}
func (noopCallback) OnRunError(context.Context, *RunParams, error)           {}
func (noopCallback) OnToolNotFound(context.Context, string)                  {}

func (noopCallback) OnModelCallStart(context.Context, string, []openai.ChatCompletionMessageParamUnion) {
}

func (noopCallback) OnModelCallEnd(context.Context, string, *openai.ChatCompletion) {
}
