package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xmcp/utils"
)

var (
	// ErrFailedUnmarshalInput is returned when tool input does not match the schema
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
	// ErrInvalidInput is returned when tool input fails validation
	ErrInvalidInput = errors.New("invalid input")
)

// ToolHandler handles MCP tool call with raw JSON arguments
type ToolHandler func(ctx context.Context, args json.RawMessage) (any, error)

// Registrator registers tools with MCP server
type Registrator interface {
	AddTool(name, description string, inputSchema map[string]any, handler ToolHandler) error
}

// ITool is a tool for the llm agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() map[string]any

	// Call executes the tool with the given input and returns the result.
	// If the tool fails to parse the input, it should return ErrFailedUnmarshalInput error.
	Call(context.Context, string) (string, error)
}

// Callback receives tool lifecycle events
type Callback interface {
	OnToolStart(context.Context, ITool, string)
	OnToolEnd(context.Context, ITool, string, string)
	OnToolError(context.Context, ITool, string, error)
}

// Tool is a typed ITool
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// IMCPTool is an interface that extends ITool to include functionality for
// registering the tool with an MCP server.
type IMCPTool interface {
	ITool
	RegisterMCP(registrator Registrator) error
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions returns JSON code block with tools names and descriptions
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return utils.BackticksJSON(utils.ToJSONIndent(d))
}

// Find returns the tool by name
func Find[T ITool](list []T, name string) (T, bool) {
	for _, t := range list {
		if t.Name() == name {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// AsTools returns the list as ITool slice
func AsTools[T ITool](list []T) []ITool {
	res := make([]ITool, 0, len(list))
	for _, t := range list {
		res = append(res, t)
	}
	return res
}
