package dispatch

import (
	"net/url"
	"sort"
	"strings"
)

// BuildPath returns path with the non-empty params appended as a query,
// params are sorted by key and spaces are encoded as %20
func BuildPath(path string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return path
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(PercentEncode(k))
		b.WriteByte('=')
		b.WriteString(PercentEncode(params[k]))
	}
	return b.String()
}

// PercentEncode escapes s for a query component
func PercentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// PathEscape escapes an identifier for a path segment
func PathEscape(s string) string {
	return url.PathEscape(s)
}
