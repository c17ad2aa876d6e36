package agentic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// decodeJSON tries to unmarshal the raw model output into T after stripping fences.
func decodeJSON[T any](raw string) (*T, error) {
	clean := sanitizeJSON(raw)
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	var out T
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode JSON: trailing data after value")
	}
	return &out, nil
}

// sanitizeJSON unwraps a reply that starts with a code fence, keeping the
// first fenced segment without its language tag.
func sanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if end := strings.Index(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
	}
	return strings.TrimSpace(trimmed)
}

// positiveInt accepts a JSON integer greater than zero. Floats, strings and
// booleans are rejected.
func positiveInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.ContainsAny(raw, ".eE\"") {
		return 0, false
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n <= 0 || n > int64(maxInt) {
		return 0, false
	}
	return int(n), true
}

const maxInt = int(^uint(0) >> 1)

// stringValue returns the JSON string in raw. ok is false for null and
// non-string values.
func stringValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func patchFromRaw(raw map[string]json.RawMessage) RetryPatch {
	var patch RetryPatch
	if v, ok := raw["k"]; ok {
		if k, ok := positiveInt(v); ok {
			patch.K = &k
		}
	}
	if v, ok := raw["severity"]; ok {
		patch.SeveritySet = true
		if s, ok := stringValue(v); ok {
			patch.Severity = normalizeSeverity(s)
		}
	}
	return patch
}
