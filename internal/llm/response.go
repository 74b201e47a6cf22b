package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNotObject = errors.New("response is not a bare JSON object")

// DecodeObject strips surrounding whitespace and decodes one JSON object.
// Markdown fences or any leading prose are rejected, not stripped.
func DecodeObject(resp string, out any) error {
	trimmed := strings.TrimSpace(resp)
	if !strings.HasPrefix(trimmed, "{") {
		return errNotObject
	}
	return json.Unmarshal([]byte(trimmed), out)
}

// Preview shortens a response for logging.
func Preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
