package sdk

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
	"github.com/effective-security/xmcp/pkg/metricskey"
	"github.com/effective-security/xmcp/schema"
	"github.com/effective-security/xmcp/store"
	"github.com/effective-security/xmcp/tools"
	"github.com/effective-security/xmcp/utils"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "sdk")

// DefaultMaxSteps is the number of model calls allowed in one run
const DefaultMaxSteps = 10

// ErrMaxSteps is returned when the model keeps calling tools
// after the allowed number of steps
var ErrMaxSteps = errors.New("maximum number of steps exceeded")

// RunParams of a single run
type RunParams struct {
	// Input is the user message
	Input string
	// Model overrides the runner model
	Model string
	// Instructions are sent as the system message
	Instructions string
	// MCPServers are executed by the model API
	MCPServers []*MCPServerRef
	// Credentials are sealed and sent with each model request
	Credentials []*connection.SecretValues
	// Tools are executed locally
	Tools []tools.ITool
	// ResponseFormat requests structured JSON output
	ResponseFormat *schema.ResponseFormat
	// MaxSteps overrides the runner limit
	MaxSteps int
	// SessionID continues the stored conversation
	SessionID string
}

// ToolCallRecord describes a local tool call
type ToolCallRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunResult of a run
type RunResult struct {
	RunID        string           `json:"run_id"`
	SessionID    string           `json:"session_id,omitempty"`
	Model        string           `json:"model"`
	Output       string           `json:"output"`
	Steps        int              `json:"steps"`
	ToolCalls    []ToolCallRecord `json:"tool_calls,omitempty"`
	InputTokens  int64            `json:"input_tokens"`
	OutputTokens int64            `json:"output_tokens"`

	// Messages is the full conversation sent to the model
	Messages []openai.ChatCompletionMessageParamUnion `json:"-"`
}

// Decode unmarshals the structured output
func (r *RunResult) Decode(out any) error {
	if err := json.Unmarshal(utils.CleanJSON([]byte(r.Output)), out); err != nil {
		return errors.Wrap(err, "failed to decode output")
	}
	return nil
}

// Runner executes conversations with the model
type Runner struct {
	client     *Client
	store      store.Store
	callback   Callback
	dispatcher dispatch.Dispatcher
	model      string
	maxSteps   int
}

// RunnerOption configures Runner
type RunnerOption func(*Runner)

// WithStore keeps the conversation history in the store
func WithStore(s store.Store) RunnerOption {
	return func(r *Runner) {
		r.store = s
	}
}

// WithCallback sets the callback
func WithCallback(cb Callback) RunnerOption {
	return func(r *Runner) {
		r.callback = cb
	}
}

// WithDispatcher binds the dispatcher for local tools calling upstream APIs
func WithDispatcher(d dispatch.Dispatcher) RunnerOption {
	return func(r *Runner) {
		r.dispatcher = d
	}
}

// WithModel sets the default model
func WithModel(model string) RunnerOption {
	return func(r *Runner) {
		r.model = model
	}
}

// WithMaxSteps sets the default steps limit
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) {
		r.maxSteps = n
	}
}

// NewRunner returns Runner
func NewRunner(client *Client, opts ...RunnerOption) *Runner {
	r := &Runner{
		client:   client,
		callback: noopCallback{},
		model:    DefaultModel,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sends the input to the model and executes requested local tools
// until the model returns the final answer
func (r *Runner) Run(ctx context.Context, p RunParams) (*RunResult, error) {
	if strings.TrimSpace(p.Input) == "" {
		return nil, errors.New("input is required")
	}

	info := &RunInfo{
		RunID:     uuid.NewString(),
		SessionID: p.SessionID,
		Model:     values.StringsCoalesce(p.Model, r.model),
	}
	if info.SessionID == "" && r.store != nil {
		info.SessionID = uuid.NewString()
	}

	ctx = WithRunInfo(ctx, info)
	if r.dispatcher != nil {
		ctx = dispatch.WithDispatcher(ctx, r.dispatcher)
	}

	started := time.Now()
	r.callback.OnRunStart(ctx, &p)

	res, err := r.run(ctx, &p, info)
	if err != nil {
		metricskey.StatsRunsFailed.IncrCounter(1, info.Model)
		logger.ContextKV(ctx, xlog.ERROR,
			"run", info.RunID,
			"model", info.Model,
			"err", err.Error(),
		)
		r.callback.OnRunError(ctx, &p, err)
		return nil, err
	}

	metricskey.PerfRun.MeasureSince(started, info.Model)
	metricskey.StatsRunsSucceeded.IncrCounter(1, info.Model)
	logger.ContextKV(ctx, xlog.DEBUG,
		"run", info.RunID,
		"model", info.Model,
		"steps", res.Steps,
		"tool_calls", len(res.ToolCalls),
	)

	r.callback.OnRunEnd(ctx, &p, res)
	return res, nil
}

func (r *Runner) run(ctx context.Context, p *RunParams, info *RunInfo) (*RunResult, error) {
	reqOpts, err := r.requestOptions(ctx, p)
	if err != nil {
		return nil, err
	}

	history, err := r.history(ctx, info.SessionID)
	if err != nil {
		return nil, err
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if p.Instructions != "" {
		messages = append(messages, openai.SystemMessage(p.Instructions))
	}
	messages = append(messages, history...)
	messages = append(messages, openai.UserMessage(p.Input))

	req := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(info.Model),
	}
	for _, t := range p.Tools {
		req.Tools = append(req.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  shared.FunctionParameters(t.Parameters()),
		}))
	}

	if rf := p.ResponseFormat; rf != nil {
		sm, err := rf.SchemaMap()
		if err != nil {
			return nil, err
		}
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   rf.Name,
					Strict: openai.Bool(rf.Strict),
					Schema: sm,
				},
			},
		}
	}

	maxSteps := p.MaxSteps
	if maxSteps <= 0 {
		maxSteps = r.maxSteps
	}

	res := &RunResult{
		RunID:     info.RunID,
		SessionID: info.SessionID,
		Model:     info.Model,
	}

	for step := 1; step <= maxSteps; step++ {
		req.Messages = messages

		r.callback.OnModelCallStart(ctx, info.Model, messages)
		completion, err := r.client.openai.Chat.Completions.New(ctx, req, reqOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "model request failed")
		}
		r.callback.OnModelCallEnd(ctx, info.Model, completion)

		res.Steps = step
		res.InputTokens += completion.Usage.PromptTokens
		res.OutputTokens += completion.Usage.CompletionTokens
		metricskey.StatsLLMInputTokens.IncrCounter(float64(completion.Usage.PromptTokens), info.Model)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(completion.Usage.CompletionTokens), info.Model)

		if len(completion.Choices) == 0 {
			return nil, errors.New("model returned no choices")
		}

		msg := completion.Choices[0].Message
		messages = append(messages, msg.ToParam())

		if len(msg.ToolCalls) == 0 {
			res.Output = msg.Content
			res.Messages = messages
			if err = r.save(ctx, info.SessionID, p.Input, msg.Content); err != nil {
				return nil, err
			}
			return res, nil
		}

		for _, tc := range msg.ToolCalls {
			rec := r.callTool(ctx, p.Tools, tc.ID, tc.Function.Name, tc.Function.Arguments)
			res.ToolCalls = append(res.ToolCalls, rec)

			content := rec.Output
			if rec.Error != "" {
				content = "error: " + rec.Error
			}
			messages = append(messages, openai.ToolMessage(content, tc.ID))
		}
	}

	return nil, errors.WithMessagef(ErrMaxSteps, "run %s stopped after %d steps", info.RunID, maxSteps)
}

func (r *Runner) requestOptions(ctx context.Context, p *RunParams) ([]option.RequestOption, error) {
	var opts []option.RequestOption
	if len(p.MCPServers) > 0 {
		targets := make([]string, 0, len(p.MCPServers))
		for _, s := range p.MCPServers {
			targets = append(targets, s.Target())
		}
		opts = append(opts, option.WithJSONSet("mcp_servers", targets))
	}
	if len(p.Credentials) > 0 {
		sealed, err := r.client.SealCredentials(ctx, p.Credentials...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithJSONSet("credentials", sealed))
	}
	return opts, nil
}

func (r *Runner) callTool(ctx context.Context, list []tools.ITool, id, name, args string) ToolCallRecord {
	rec := ToolCallRecord{
		ID:        id,
		Name:      name,
		Arguments: args,
	}

	tool, ok := tools.Find(list, name)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING, "reason", "tool_not_found", "tool", name)
		r.callback.OnToolNotFound(ctx, name)
		rec.Error = "tool not found: " + name
		return rec
	}

	r.callback.OnToolStart(ctx, tool, args)
	out, err := tool.Call(ctx, args)
	if err != nil {
		r.callback.OnToolError(ctx, tool, args, err)
		rec.Error = err.Error()
		return rec
	}
	r.callback.OnToolEnd(ctx, tool, args, out)
	rec.Output = out
	return rec
}

// storedMessage is a text turn kept in the store
type storedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r *Runner) history(ctx context.Context, sessionID string) ([]openai.ChatCompletionMessageParamUnion, error) {
	if r.store == nil || sessionID == "" {
		return nil, nil
	}

	raw, err := r.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load session %s", sessionID)
	}

	var list []openai.ChatCompletionMessageParamUnion
	for _, js := range raw {
		var m storedMessage
		if err = json.Unmarshal(js, &m); err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "invalid_message", "session", sessionID, "err", err.Error())
			continue
		}
		switch m.Role {
		case "user":
			list = append(list, openai.UserMessage(m.Content))
		case "assistant":
			list = append(list, openai.AssistantMessage(m.Content))
		}
	}
	return list, nil
}

func (r *Runner) save(ctx context.Context, sessionID, input, output string) error {
	if r.store == nil || sessionID == "" {
		return nil
	}

	user, _ := json.Marshal(storedMessage{Role: "user", Content: input})
	assistant, _ := json.Marshal(storedMessage{Role: "assistant", Content: output})
	if err := r.store.Add(ctx, sessionID, user, assistant); err != nil {
		return errors.WithMessagef(err, "failed to save session %s", sessionID)
	}
	return nil
}
