package schema

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// ResponseFormat describes the structured JSON output requested from a model
type ResponseFormat struct {
	Name   string    `json:"name"`
	Strict bool      `json:"strict"`
	Schema *Property `json:"schema"`
}

// Property is a subset of JSON schema accepted for structured output
type Property struct {
	Type                 string               `json:"type"`
	Title                string               `json:"title,omitempty"`
	Description          string               `json:"description,omitempty"`
	Enum                 []any                `json:"enum,omitempty"`
	Default              any                  `json:"default,omitempty"`
	Examples             []any                `json:"examples,omitempty"`
	Items                *Property            `json:"items,omitempty"`
	Properties           map[string]*Property `json:"properties,omitempty"`
	AdditionalProperties *bool                `json:"additionalProperties,omitempty"`
	Required             []string             `json:"required,omitempty"`
}

// NewResponseFormat returns the response format of the struct type.
// In strict mode all properties are required and no others are allowed.
func NewResponseFormat(t reflect.Type, strict bool) (*ResponseFormat, error) {
	sc, err := New(t)
	if err != nil {
		return nil, err
	}
	return &ResponseFormat{
		Name:   t.Name(),
		Strict: strict,
		Schema: toProperty(sc.Parameters, strict),
	}, nil
}

// ResponseFormatFor returns the response format of the type O
func ResponseFormatFor[O any](strict bool) (*ResponseFormat, error) {
	return NewResponseFormat(reflect.TypeOf((*O)(nil)).Elem(), strict)
}

// SchemaMap returns the schema as a generic JSON object
func (f *ResponseFormat) SchemaMap() (map[string]any, error) {
	js, err := json.Marshal(f.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	m := map[string]any{}
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal schema")
	}
	return m, nil
}

func toProperty(in *jsonschema.Schema, strict bool) *Property {
	if in == nil {
		return nil
	}

	p := &Property{
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Enum:        in.Enum,
		Default:     in.Default,
		Examples:    in.Examples,
		Required:    in.Required,
	}

	if in.Type == "object" {
		allowed := !strict && in.AdditionalProperties != nil && in.AdditionalProperties != jsonschema.FalseSchema
		p.AdditionalProperties = &allowed
	}

	if in.Properties != nil {
		p.Properties = make(map[string]*Property, in.Properties.Len())
		var keys []string
		for pair := in.Properties.Oldest(); pair != nil; pair = pair.Next() {
			p.Properties[pair.Key] = toProperty(pair.Value, strict)
			keys = append(keys, pair.Key)
		}
		if strict {
			p.Required = keys
		}
	}

	if in.Items != nil {
		p.Items = toProperty(in.Items, strict)
	}
	return p
}
