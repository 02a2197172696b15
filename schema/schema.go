package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xmcp/utils"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex
)

// Schema is the JSON schema of a tool input type
type Schema struct {
	*jsonschema.Schema
	// Parameters is the flattened function parameters definition,
	// with all $ref resolved
	Parameters *jsonschema.Schema
}

// New creates a new schema from the given type
func New(t reflect.Type) (*Schema, error) {
	cacheMu.RLock()
	s, ok := cache[t]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()

	return s, nil
}

// For returns the schema of the type I
func For[I any]() (*Schema, error) {
	return New(reflect.TypeOf((*I)(nil)).Elem())
}

func (s *Schema) String() string {
	return utils.ToJSONIndent(s.Parameters)
}

// Map returns Parameters as a generic JSON object,
// as expected by MCP tool definitions and chat completion functions
func (s *Schema) Map() (map[string]any, error) {
	js, err := json.Marshal(s.Parameters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	m := map[string]any{}
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal schema")
	}
	return m, nil
}

func buildSchema(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf("schema: expected struct type, got %s", t.Kind())
	}

	schema := JSONSchema(t)
	params, err := ToFunctionSchema(schema)
	if err != nil {
		return nil, errors.WithMessagef(err, "schema: %s", t.Name())
	}

	return &Schema{
		Schema:     schema,
		Parameters: params,
	}, nil
}

// ToFunctionSchema returns the top level object of the reflected schema
func ToFunctionSchema(tSchema *jsonschema.Schema) (*jsonschema.Schema, error) {
	refID := strings.TrimPrefix(tSchema.Ref, "#/$defs/")

	var defs = make(map[string]*jsonschema.Schema)
	var root *jsonschema.Schema

	for name, def := range tSchema.Definitions {
		if name == refID {
			root = def
		} else {
			defs[name] = def
		}
	}
	if root == nil {
		return nil, errors.Newf("definition not found: %s", refID)
	}

	props := root.Properties
	if props == nil {
		props = orderedmap.New[string, *jsonschema.Schema]()
	}

	res := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   root.Required,
	}

	if err := resolveRefs(res.Properties, defs); err != nil {
		return nil, err
	}
	return res, nil
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) error {
	if props == nil {
		return nil
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Ref != "" {
			name := strings.TrimPrefix(pair.Value.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Newf("definition not found: %s", name)
			}
			pair.Value = def
		}
		child := pair.Value
		if err := resolveRefs(child.Properties, defs); err != nil {
			return err
		}
		if child.Items != nil && child.Items.Ref != "" {
			name := strings.TrimPrefix(child.Items.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Newf("definition not found: %s", name)
			}
			child.Items = def
		}
	}
	return nil
}

// JSONSchema returns the json schema of the type
func JSONSchema(t reflect.Type) *jsonschema.Schema {
	r := new(jsonschema.Reflector)

	// Struct names can collide across packages,
	// the definition name carries a hash of the full package path.
	// See https://github.com/invopop/jsonschema/issues/42
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}

	return r.ReflectFromType(t)
}
