package evalsrvc

import (
	"encoding/json"
	"strings"
)

// Canonicalize normalizes an output value so that results from
// different language runtimes compare equal. Parseable JSON is
// re-serialized compactly (so `1.0` and `1` agree, and map output from
// json.dumps matches JSON.stringify); anything else falls back to
// trimming whitespace and quoting characters.
func Canonicalize(text string) string {
	trimmed := strings.TrimSpace(text)
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return strings.Trim(trimmed, `"'`)
}
