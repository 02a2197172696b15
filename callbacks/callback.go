package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/sdk"
	"github.com/effective-security/xmcp/tools"
	"github.com/openai/openai-go/v3"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ sdk.Callback = (*Noop)(nil)
	_ sdk.Callback = (*Printer)(nil)
	_ sdk.Callback = (*PackageLogger)(nil)
	_ sdk.Callback = (*Fanout)(nil)
	_ sdk.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []sdk.Callback
}

func NewFanout(callbacks ...sdk.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback sdk.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnRunStart(ctx context.Context, params *sdk.RunParams) {
	for _, callback := range l.callbacks {
		callback.OnRunStart(ctx, params)
	}
}

func (l *Fanout) OnRunEnd(ctx context.Context, params *sdk.RunParams, res *sdk.RunResult) {
	for _, callback := range l.callbacks {
		callback.OnRunEnd(ctx, params, res)
	}
}

func (l *Fanout) OnRunError(ctx context.Context, params *sdk.RunParams, err error) {
	for _, callback := range l.callbacks {
		callback.OnRunError(ctx, params, err)
	}
}

func (l *Fanout) OnModelCallStart(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) {
	for _, callback := range l.callbacks {
		callback.OnModelCallStart(ctx, model, messages)
	}
}

func (l *Fanout) OnModelCallEnd(ctx context.Context, model string, completion *openai.ChatCompletion) {
	for _, callback := range l.callbacks {
		callback.OnModelCallEnd(ctx, model, completion)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, tool)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnRunStart(ctx context.Context, params *sdk.RunParams)                    {}
func (l *Noop) OnRunEnd(ctx context.Context, params *sdk.RunParams, res *sdk.RunResult)  {}
func (l *Noop) OnRunError(ctx context.Context, params *sdk.RunParams, err error)         {}
func (l *Noop) OnToolStart(ctx context.Context, tool tools.ITool, input string)          {}
func (l *Noop) OnToolEnd(ctx context.Context, tool tools.ITool, input, output string)    {}
func (l *Noop) OnToolError(ctx context.Context, tool tools.ITool, input string, _ error) {}
func (l *Noop) OnToolNotFound(ctx context.Context, tool string)                          {}
func (l *Noop) OnModelCallStart(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) {
}
func (l *Noop) OnModelCallEnd(ctx context.Context, model string, completion *openai.ChatCompletion) {
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnRunStart(ctx context.Context, params *sdk.RunParams) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run Start: %s\n", runID(ctx))
	fmt.Fprintf(l.Out, "Input: %s\n", params.Input)
}

func (l *Printer) OnRunEnd(ctx context.Context, params *sdk.RunParams, res *sdk.RunResult) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run End: %s: %d steps, %d tool calls\n", res.RunID, res.Steps, len(res.ToolCalls))
	if l.Mode == ModeVerbose && res.Output != "" {
		fmt.Fprintln(l.Out, res.Output)
	}
}

func (l *Printer) OnRunError(ctx context.Context, params *sdk.RunParams, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run Error: %s: %s\n", runID(ctx), err.Error())
}

func (l *Printer) OnModelCallStart(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Model Call: %s model, %d messages\n", model, len(messages))
}

func (l *Printer) OnModelCallEnd(ctx context.Context, model string, completion *openai.ChatCompletion) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Model Call End: %s model, %d choices, %d input tokens, %d output tokens\n",
		model, len(completion.Choices), completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
}

func (l *Printer) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool.Name())
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool.Name(), err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnRunStart(ctx context.Context, params *sdk.RunParams) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "run_start",
		"run", runID(ctx),
		"servers", len(params.MCPServers),
		"tools", len(params.Tools),
	)
}

func (l *PackageLogger) OnRunEnd(ctx context.Context, params *sdk.RunParams, res *sdk.RunResult) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "run_end",
		"run", res.RunID,
		"steps", res.Steps,
		"tool_calls", len(res.ToolCalls),
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)
}

func (l *PackageLogger) OnRunError(ctx context.Context, params *sdk.RunParams, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "run_error",
		"run", runID(ctx),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnModelCallStart(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_start",
		"model", model,
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnModelCallEnd(ctx context.Context, model string, completion *openai.ChatCompletion) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_end",
		"model", model,
		"choices", len(completion.Choices),
		"input_tokens", completion.Usage.PromptTokens,
		"output_tokens", completion.Usage.CompletionTokens,
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name(),
		"output", output,
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name(),
		"input", input,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, tool string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"tool", tool,
	)
}

func runID(ctx context.Context) string {
	if info := sdk.RunInfoFromContext(ctx); info != nil {
		return info.RunID
	}
	return ""
}
