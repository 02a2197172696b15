package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/xmcp/sdk"
	"github.com/effective-security/xmcp/tools"
	"github.com/openai/openai-go/v3"
)

var TimeNowFn = time.Now

// RunStats accumulates counters of a single run
type RunStats struct {
	RunID     string
	SessionID string
	Model     string

	Duration            time.Duration
	Succeeded           bool
	TotalMessages       uint32
	LLMCalls            uint32
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
	ToolNotFound        uint32
}

// Scratchpad records a transcript and stats of each run,
// the results are kept until taken by Result
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// Result returns stats and transcript of the completed run,
// and removes it from the scratchpad
func (l *Scratchpad) Result(runID string) (*RunStats, []byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	run := l.runs[runID]
	if run == nil {
		return nil, nil
	}

	run.lock.Lock()
	defer run.lock.Unlock()
	if !run.done {
		return nil, nil
	}
	delete(l.runs, runID)

	stats := run.stats
	return &stats, append([]byte(nil), run.w.Bytes()...)
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	info := sdk.RunInfoFromContext(ctx)
	if info == nil {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[info.RunID]
}

func (l *Scratchpad) OnRunStart(ctx context.Context, params *sdk.RunParams) {
	info := sdk.RunInfoFromContext(ctx)
	if info == nil {
		return
	}

	r := &run{
		stats: RunStats{
			RunID:     info.RunID,
			SessionID: info.SessionID,
			Model:     info.Model,
		},
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[info.RunID] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
	r.print("Input:", params.Input)
}

func (l *Scratchpad) OnRunEnd(ctx context.Context, params *sdk.RunParams, res *sdk.RunResult) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	if l.mode == ModeVerbose {
		run.print("Output:", res.Output)
	}
	run.finish(true)
}

func (l *Scratchpad) OnRunError(ctx context.Context, params *sdk.RunParams, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print("*** Error ***", err.Error())
	run.finish(false)
}

func (l *Scratchpad) OnModelCallStart(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	count := uint32(len(messages))
	atomic.AddUint32(&run.stats.LLMCalls, 1)
	atomic.AddUint32(&run.stats.TotalMessages, count)
	run.print("*** LLM Call ***", fmt.Sprintf("%s model, %d messages", model, count))
}

func (l *Scratchpad) OnModelCallEnd(ctx context.Context, model string, completion *openai.ChatCompletion) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	tokensIn := completion.Usage.PromptTokens
	tokensOut := completion.Usage.CompletionTokens
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))

	run.print("*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens", model, tokensIn, tokensOut))
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(tool.Name(), "*** Tool Start ***")
	run.print(tool.Name(), "Input:", input)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		run.print(tool.Name(), "Output:", output)
	}
	run.print(tool.Name(), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(tool.Name(), "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, tool string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print("*** Tool Not Found ***", tool)
}

type run struct {
	w       bytes.Buffer
	started time.Time
	done    bool
	lock    sync.Mutex
	stats   RunStats
}

func (r *run) finish(succeeded bool) {
	stats := &r.stats
	duration := TimeNowFn().Sub(r.started)

	r.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		atomic.LoadUint32(&stats.ToolsCalls),
		atomic.LoadUint32(&stats.ToolsCallsFailed),
		atomic.LoadUint32(&stats.ToolNotFound),
	))
	r.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Input Tokens: %d, Output Tokens: %d",
		atomic.LoadUint32(&stats.LLMCalls),
		atomic.LoadUint32(&stats.TotalMessages),
		atomic.LoadUint64(&stats.LLMInputTokens),
		atomic.LoadUint64(&stats.LLMOutputTokens),
	))
	r.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", duration))

	r.lock.Lock()
	stats.Duration = duration
	stats.Succeeded = succeeded
	r.done = true
	r.lock.Unlock()
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp runID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.stats.RunID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
