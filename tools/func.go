package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/pkg/metricskey"
	"github.com/effective-security/xmcp/schema"
	"github.com/effective-security/xmcp/utils"
	"github.com/go-playground/validator/v10"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "tools")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaulter is implemented by inputs with default values
// applied before validation
type Defaulter interface {
	SetDefaults()
}

// Func is a Tool backed by a function
type Func[I any, O any] struct {
	name        string
	description string
	params      map[string]any
	fn          func(context.Context, *I) (*O, error)
}

// ensure Func implements the interfaces
var (
	_ Tool[struct{}, struct{}] = (*Func[struct{}, struct{}])(nil)
	_ IMCPTool                 = (*Func[struct{}, struct{}])(nil)
)

// NewFunc returns a tool with input schema reflected from I
func NewFunc[I any, O any](name, description string, fn func(context.Context, *I) (*O, error)) (*Func[I, O], error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	sc, err := schema.For[I]()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create schema for %s", name)
	}
	params, err := sc.Map()
	if err != nil {
		return nil, err
	}
	return &Func[I, O]{
		name:        name,
		description: description,
		params:      params,
		fn:          fn,
	}, nil
}

// MustFunc is NewFunc that panics on error,
// used for package level tool definitions
func MustFunc[I any, O any](name, description string, fn func(context.Context, *I) (*O, error)) *Func[I, O] {
	f, err := NewFunc(name, description, fn)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the name of the tool
func (f *Func[I, O]) Name() string {
	return f.name
}

// Description returns the description of the tool
func (f *Func[I, O]) Description() string {
	return f.description
}

// Parameters returns the JSON schema of the input
func (f *Func[I, O]) Parameters() map[string]any {
	return f.params
}

// Run validates the input and executes the tool
func (f *Func[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	if req == nil {
		req = new(I)
	}
	if d, ok := any(req).(Defaulter); ok {
		d.SetDefaults()
	}
	if err := validateInput(req); err != nil {
		return nil, err
	}

	started := time.Now()
	out, err := f.fn(ctx, req)
	metricskey.PerfToolCall.MeasureSince(started, f.name)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, f.name)
		logger.ContextKV(ctx, xlog.WARNING, "tool", f.name, "err", err.Error())
		return nil, err
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, f.name)
	return out, nil
}

// Call executes the tool with JSON input and returns JSON output
func (f *Func[I, O]) Call(ctx context.Context, input string) (string, error) {
	req, err := f.decode([]byte(input))
	if err != nil {
		return "", err
	}
	out, err := f.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return utils.ToJSON(out), nil
}

// RegisterMCP registers the tool with MCP server
func (f *Func[I, O]) RegisterMCP(r Registrator) error {
	return r.AddTool(f.name, f.description, f.params, func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := f.decode(args)
		if err != nil {
			return nil, err
		}
		return f.Run(ctx, req)
	})
}

func (f *Func[I, O]) decode(input []byte) (*I, error) {
	req := new(I)
	input = bytes.TrimSpace(input)
	if len(input) == 0 || bytes.Equal(input, []byte("null")) {
		return req, nil
	}
	if err := json.Unmarshal(utils.CleanJSON(input), req); err != nil {
		logger.KV(xlog.DEBUG, "tool", f.name, "err", err.Error())
		return nil, errors.WithStack(ErrFailedUnmarshalInput)
	}
	return req, nil
}

func validateInput(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		return errors.Mark(errors.Wrap(err, "invalid input"), ErrInvalidInput)
	}
	return errors.Wrap(err, "failed to validate input")
}
