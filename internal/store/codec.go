package store

import (
	"encoding/json"
	"strings"

	"harvest/internal/normalize"
)

// EncodeList stores a multi-value field as a JSON array.
func EncodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		// []string always marshals
		return "[]"
	}
	return string(b)
}

// DecodeList reads a multi-value column. Columns written before values were
// JSON-encoded hold comma-joined text, which is split as a fallback.
func DecodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return items
		}
	}
	return normalize.SplitList(raw)
}
