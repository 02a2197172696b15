package sdk_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
	"github.com/effective-security/xmcp/mocks/mockdispatch"
	"github.com/effective-security/xmcp/schema"
	"github.com/effective-security/xmcp/sdk"
	"github.com/effective-security/xmcp/store"
	"github.com/effective-security/xmcp/tools"
	"github.com/effective-security/xmcp/tools/smoke"
	"github.com/effective-security/xmcp/tools/x"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const usage = `{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}`

func TestRunner_Simple(t *testing.T) {
	t.Setenv(sdk.EnvMCPServerURL, "")

	api := newFakeAPI(t, completion("There are 3 tables.", usage))
	runner := sdk.NewRunner(api.client(t))

	gh, err := connection.NewSecretValues(connection.GitHub, map[string]string{"token": "ghp_test"})
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), sdk.RunParams{
		Input:        "Use the Supabase tool to list all tables in the database.",
		Instructions: "Be brief.",
		MCPServers:   []*sdk.MCPServerRef{sdk.NewMCPServerRef("windsor/example-dedalus-mcp")},
		Credentials:  []*connection.SecretValues{gh},
	})
	require.NoError(t, err)
	assert.Equal(t, "There are 3 tables.", res.Output)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, sdk.DefaultModel, res.Model)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.SessionID)
	assert.Equal(t, int64(7), res.InputTokens)
	assert.Equal(t, int64(3), res.OutputTokens)
	assert.Len(t, res.Messages, 3)

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "openai/gpt-4.1", req["model"])
	assert.Equal(t, []any{"windsor/example-dedalus-mcp"}, req["mcp_servers"])
	assert.NotContains(t, req, "tools")

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])

	creds := req["credentials"].([]any)
	require.Len(t, creds, 1)
	cred := creds[0].(map[string]any)
	assert.Equal(t, "github", cred["connection"])
	assert.Equal(t, "enc-key", cred["kid"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal(api.decrypt(t, cred["ciphertext"].(string)), &payload))
	assert.Equal(t, "github", payload["connection"])
}

func TestRunner_LocalTools(t *testing.T) {
	api := newFakeAPI(t,
		toolCallCompletion("call_1", smoke.PingTool.Name(), `{"message":"hello"}`),
		toolCallCompletion("call_2", "x_post_tweet", `{"text":"hi"}`),
		completion("done", usage),
	)

	var events []string
	runner := sdk.NewRunner(api.client(t),
		sdk.WithModel("anthropic/claude-sonnet"),
		sdk.WithCallback(&recorder{events: &events}),
	)

	res, err := runner.Run(context.Background(), sdk.RunParams{
		Input: "ping the server",
		Tools: tools.AsTools(smoke.Tools()),
	})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, "anthropic/claude-sonnet", res.Model)
	assert.Equal(t, int64(27), res.InputTokens)

	require.Len(t, res.ToolCalls, 2)
	assert.Equal(t, "call_1", res.ToolCalls[0].ID)
	assert.Equal(t, smoke.PingTool.Name(), res.ToolCalls[0].Name)
	assert.JSONEq(t, `{"ok":true,"message":"hello"}`, res.ToolCalls[0].Output)
	assert.Empty(t, res.ToolCalls[0].Error)
	assert.Equal(t, "tool not found: x_post_tweet", res.ToolCalls[1].Error)

	reqs := api.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "anthropic/claude-sonnet", reqs[0]["model"])

	tl := reqs[0]["tools"].([]any)
	require.Len(t, tl, 1)
	fn := tl[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, smoke.PingTool.Name(), fn["name"])

	// assistant tool call and tool answer are sent back
	msgs := reqs[1]["messages"].([]any)
	require.Len(t, msgs, 3)
	toolMsg := msgs[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])

	msgs = reqs[2]["messages"].([]any)
	require.Len(t, msgs, 5)
	assert.Equal(t, "error: tool not found: x_post_tweet", msgs[4].(map[string]any)["content"])

	assert.Equal(t, []string{
		"run_start",
		"tool_start:" + smoke.PingTool.Name(),
		"tool_end:" + smoke.PingTool.Name(),
		"not_found:x_post_tweet",
		"run_end",
	}, events)
}

func TestRunner_DispatchTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := mockdispatch.NewMockDispatcher(ctrl)
	d.EXPECT().Dispatch(gomock.Any(), "x", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, req *dispatch.HTTPRequest) (*dispatch.Response, error) {
			assert.Equal(t, "/users/by/username/jack?user.fields=description%2Cpublic_metrics%2Ccreated_at", req.Path)
			return &dispatch.Response{
				Success:  true,
				Response: &dispatch.HTTPResponse{Status: 200, Body: map[string]any{"data": map[string]any{"id": "12"}}},
			}, nil
		})

	api := newFakeAPI(t,
		toolCallCompletion("call_1", x.GetUserByUsernameTool.Name(), `{"username":"jack"}`),
		completion("jack has id 12", usage),
	)
	runner := sdk.NewRunner(api.client(t), sdk.WithDispatcher(d))

	res, err := runner.Run(context.Background(), sdk.RunParams{
		Input: "who is jack",
		Tools: tools.AsTools(x.Tools()),
	})
	require.NoError(t, err)
	assert.Equal(t, "jack has id 12", res.Output)
	require.Len(t, res.ToolCalls, 1)
	assert.Contains(t, res.ToolCalls[0].Output, `"success":true`)
}

type tableList struct {
	Tables []string `json:"tables"`
}

func TestRunner_ResponseFormat(t *testing.T) {
	api := newFakeAPI(t, completion("```json\n{\"tables\":[\"users\",\"posts\"]}\n```", usage))
	runner := sdk.NewRunner(api.client(t))

	rf, err := schema.ResponseFormatFor[tableList](true)
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), sdk.RunParams{
		Input:          "list tables",
		ResponseFormat: rf,
	})
	require.NoError(t, err)

	var out tableList
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, []string{"users", "posts"}, out.Tables)

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	format := reqs[0]["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, "tableList", js["name"])
	assert.Equal(t, true, js["strict"])

	res.Output = "no json here"
	assert.Error(t, res.Decode(&out))
}

func TestRunner_MaxSteps(t *testing.T) {
	api := newFakeAPI(t, toolCallCompletion("call_1", "loop", `{}`))
	runner := sdk.NewRunner(api.client(t), sdk.WithMaxSteps(3))

	_, err := runner.Run(context.Background(), sdk.RunParams{Input: "loop forever"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdk.ErrMaxSteps))
	assert.Len(t, api.Requests(), 3)

	_, err = runner.Run(context.Background(), sdk.RunParams{Input: "loop once", MaxSteps: 1})
	assert.True(t, errors.Is(err, sdk.ErrMaxSteps))
	assert.Len(t, api.Requests(), 4)
}

func TestRunner_Errors(t *testing.T) {
	api := newFakeAPI(t, `{"id":"c","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	runner := sdk.NewRunner(api.client(t))

	_, err := runner.Run(context.Background(), sdk.RunParams{Input: "  "})
	assert.EqualError(t, err, "input is required")

	_, err = runner.Run(context.Background(), sdk.RunParams{Input: "hi"})
	assert.EqualError(t, err, "model returned no choices")

	c, err := sdk.NewClient(sdk.Config{APIKey: "wrong", BaseURL: api.srv.URL, ASBaseURL: api.srv.URL})
	require.NoError(t, err)
	_, err = sdk.NewRunner(c).Run(context.Background(), sdk.RunParams{Input: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model request failed")
}

func TestRunner_Session(t *testing.T) {
	api := newFakeAPI(t,
		completion("first answer", usage),
		completion("second answer", usage),
	)
	st := store.NewMemoryStore()
	runner := sdk.NewRunner(api.client(t), sdk.WithStore(st))
	ctx := context.Background()

	res, err := runner.Run(ctx, sdk.RunParams{Input: "first question"})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)

	res2, err := runner.Run(ctx, sdk.RunParams{Input: "second question", SessionID: res.SessionID})
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, res2.SessionID)
	assert.Equal(t, "second answer", res2.Output)

	reqs := api.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1]["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first question", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "first answer", msgs[1].(map[string]any)["content"])
	assert.Equal(t, "second question", msgs[2].(map[string]any)["content"])

	stored, err := st.Messages(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	sessions, err := st.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{res.SessionID}, sessions)
}

type recorder struct {
	sdk.Callback
	events *[]string
}

func (r *recorder) OnRunStart(context.Context, *sdk.RunParams) {
	*r.events = append(*r.events, "run_start")
}

func (r *recorder) OnRunEnd(context.Context, *sdk.RunParams, *sdk.RunResult) {
	*r.events = append(*r.events, "run_end")
}

func (r *recorder) OnRunError(context.Context, *sdk.RunParams, error) {
	*r.events = append(*r.events, "run_error")
}

func (r *recorder) OnModelCallStart(context.Context, string, []openai.ChatCompletionMessageParamUnion) {}

func (r *recorder) OnModelCallEnd(context.Context, string, *openai.ChatCompletion) {}

func (r *recorder) OnToolStart(_ context.Context, tool tools.ITool, _ string) {
	*r.events = append(*r.events, "tool_start:"+tool.Name())
}

func (r *recorder) OnToolEnd(_ context.Context, tool tools.ITool, _, _ string) {
	*r.events = append(*r.events, "tool_end:"+tool.Name())
}

func (r *recorder) OnToolError(_ context.Context, tool tools.ITool, _ string, _ error) {
	*r.events = append(*r.events, "tool_error:"+tool.Name())
}

func (r *recorder) OnToolNotFound(_ context.Context, tool string) {
	*r.events = append(*r.events, "not_found:"+tool)
}
