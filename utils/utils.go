package utils

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// CleanJSON returns JSON by trimming prefixes and postfixes,
// model generated tool arguments can come as
// `Here you go: {json}`
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	switch {
	case startObject == -1 && startArray == -1:
		return bs
	case startObject == -1:
		return bs[startArray:]
	case startArray == -1:
		return bs[startObject:]
	default:
		return bs[min(startObject, startArray):]
	}
}

func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	switch {
	case endObject == -1 && endArray == -1:
		return bs
	case endObject == -1:
		return bs[:endArray+1]
	case endArray == -1:
		return bs[:endObject+1]
	default:
		return bs[:max(endObject, endArray)+1]
	}
}

// ToJSON returns compact JSON, or empty string if val can not be marshaled
func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

// ToJSONIndent returns JSON indented with tabs
func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

// ToYAML returns YAML representation of val
func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

// ToMap converts a JSON-serializable value to a generic map
func ToMap(val any) (map[string]any, error) {
	js, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// BackticksJSON wraps js into a markdown code block
func BackticksJSON(js string) string {
	return "\n```json\n" + strings.TrimSpace(js) + "\n```\n"
}
