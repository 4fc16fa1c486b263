package agent

import "context"

// OpError is the operation name carried by Results that report a domain
// failure. Units return these instead of Go errors for anything a caller
// did wrong: missing fields, unknown operations, business rule violations.
const OpError = "error"

// Task is the request payload handed to a unit. The "op" key selects the
// operation; everything else is operation-specific input.
type Task map[string]interface{}

// Result is a unit's answer. Once returned it is treated as immutable:
// callers that need to reuse Carry must copy it first.
type Result struct {
	Unit        string                 `json:"unit"`
	Op          string                 `json:"op"`
	Data        map[string]interface{} `json:"data"`
	Next        string                 `json:"next,omitempty"`
	Carry       map[string]interface{} `json:"carry,omitempty"`
	StateWrites map[string]interface{} `json:"state_writes,omitempty"`
}

// Failed reports whether the result is a domain-level error.
func (r *Result) Failed() bool {
	return r.Op == OpError
}

// ErrorMessage returns the message of an error Result, or "" for success.
func (r *Result) ErrorMessage() string {
	if !r.Failed() {
		return ""
	}
	msg, _ := r.Data["error"].(string)
	return msg
}

// Unit is a single specialized worker. Implementations validate the
// requested op at the boundary and dispatch to one handler per op.
type Unit interface {
	ID() string
	Description() string
	Perform(ctx context.Context, task Task) (*Result, error)
}

// HandlerFunc handles one operation of a unit.
type HandlerFunc func(ctx context.Context, task Task) (*Result, error)

// Op returns the requested operation name, "" when absent.
func (t Task) Op() string {
	return t.String("op")
}

// String returns the string at key, "" when absent or not a string.
func (t Task) String(key string) string {
	s, _ := t[key].(string)
	return s
}

// StringOr returns the string at key, or def when absent.
func (t Task) StringOr(key, def string) string {
	if s, ok := t[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Bool returns the bool at key, false when absent or not a bool.
func (t Task) Bool(key string) bool {
	b, _ := t[key].(bool)
	return b
}

// Int returns the integer at key. JSON decoding produces float64, so both
// numeric representations are accepted.
func (t Task) Int(key string) int {
	switch n := t[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Float returns the float at key, 0 when absent or not numeric.
func (t Task) Float(key string) float64 {
	switch n := t[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Map returns the nested map at key, nil when absent or not a map.
func (t Task) Map(key string) map[string]interface{} {
	switch m := t[key].(type) {
	case map[string]interface{}:
		return m
	case Task:
		return map[string]interface{}(m)
	default:
		return nil
	}
}

// Strings returns the string slice at key, accepting both []string and the
// []interface{} produced by JSON decoding.
func (t Task) Strings(key string) []string {
	switch v := t[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	if t == nil {
		return Task{}
	}
	return Task(cloneMap(t))
}

// CloneMap deep-copies a string-keyed map, descending into nested maps and
// slices. Scalars are shared, which is safe because they are immutable.
func CloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return cloneMap(m)
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case Task:
		return Task(cloneMap(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
