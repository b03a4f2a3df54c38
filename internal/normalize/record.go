// Package normalize maps raw API records onto the entity shapes the store
// persists. It never fails: absent or wrongly typed fields resolve to a
// default so dedup and foreign-key logic downstream always has a value.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Record is one raw JSON object as returned by a source.
type Record map[string]any

// Str returns the string at key, or def when it is absent or not a string.
func (r Record) Str(key, def string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return def
}

// Strs returns the string elements of the list at key, or def when the key
// is absent or not a list. Non-string elements are dropped.
func (r Record) Strs(key string, def []string) []string {
	list, ok := r[key].([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Obj returns the nested object at key; a missing or non-object value
// yields an empty Record so lookups can be chained.
func (r Record) Obj(key string) Record {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	}
	return Record{}
}

func (r Record) Bool(key string, def bool) bool {
	if b, ok := r[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integral number at key, or nil. Values outside the int32
// range count as malformed.
func (r Record) Int(key string) *int {
	var f float64
	switch v := r[key].(type) {
	case float64:
		f = v
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return nil
		}
		f = float64(n)
	default:
		return nil
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

// sortedKeys gives deterministic output for JSON objects used as lists.
func (r Record) sortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SplitList splits a comma-joined API value into trimmed, non-empty items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
