package settings

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot holds the in-memory DB override values.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// current stores the latest snapshot atomically.
var current atomic.Value // stores snapshot

func init() {
	current.Store(snapshot{values: map[string]json.RawMessage{}})
}

// Store replaces the in-memory snapshot of DB-backed settings.
func Store(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = append(json.RawMessage(nil), v...)
	}
	current.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the newest row timestamp of the loaded snapshot.
func UpdatedAt() time.Time {
	return load().updatedAt
}

// Value returns a copy of the raw value for key.
func Value(key string) (json.RawMessage, bool) {
	val, ok := load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), val...), true
}

// String reads key as a trimmed string. Values may be a bare JSON string or
// wrapped as {"value": ...}.
func String(key string) string {
	raw, ok := Value(key)
	if !ok {
		return ""
	}
	return parseString(raw)
}

// Strings reads key as a list of non-empty strings. A single string is
// returned as a one-element list.
func Strings(key string) []string {
	raw, ok := Value(key)
	if !ok {
		return nil
	}
	return parseStrings(raw)
}

// Bool reads key as a boolean, reporting whether it was set.
func Bool(key string) (bool, bool) {
	raw, ok := Value(key)
	if !ok {
		return false, false
	}
	raw = unwrap(raw)
	var b bool
	if errUnmarshal := json.Unmarshal(raw, &b); errUnmarshal == nil {
		return b, true
	}
	switch strings.ToLower(parseString(raw)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

func load() snapshot {
	snap, ok := current.Load().(snapshot)
	if !ok || snap.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return snap
}

// unwrap strips a {"value": ...} envelope when present.
func unwrap(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return unwrap(wrapper.Value)
	}
	return raw
}

func parseString(raw json.RawMessage) string {
	raw = unwrap(raw)
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func parseStrings(raw json.RawMessage) []string {
	raw = unwrap(raw)
	var values []string
	if errUnmarshal := json.Unmarshal(raw, &values); errUnmarshal != nil {
		if single := parseString(raw); single != "" {
			return []string{single}
		}
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
