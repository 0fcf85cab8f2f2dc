package domain

import "fmt"

// Update is the partial state record returned by a node: field name to the
// value it contributes.
type Update map[string]any

// Snapshot is a read-only view of the shared state. Accessors return copies,
// so a node cannot reach the executor's record through it.
type Snapshot struct {
	values map[string]any
}

// NewSnapshot freezes a copy of values.
func NewSnapshot(values map[string]any) Snapshot {
	return Snapshot{values: CloneValues(values)}
}

// Get returns a copy of the field value.
func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s.values[name]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// String returns the field as a string, or "" when unset or not a string.
func (s Snapshot) String(name string) string {
	v, _ := s.values[name].(string)
	return v
}

// Strings returns a sequence field as strings. Non-string elements are
// formatted with %v.
func (s Snapshot) Strings(name string) []string {
	switch v := s.values[name].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			} else {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	}
	return nil
}

// Len returns the length of a sequence field, 0 when unset.
func (s Snapshot) Len(name string) int {
	switch v := s.values[name].(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	}
	return 0
}

// Values returns a copy of the whole record.
func (s Snapshot) Values() map[string]any {
	return CloneValues(s.values)
}

// CloneValues deep-copies a state record. Maps and slices are copied, the
// remaining values are treated as immutable scalars.
func CloneValues(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case map[string]any:
		return CloneValues(t)
	}
	return v
}
