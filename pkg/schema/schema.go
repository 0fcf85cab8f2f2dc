package schema

import (
	"fmt"
	"strings"
)

// Policy is the merge rule applied when a node writes a field.
type Policy int

const (
	// Replace keeps the last value written. Only one writer per superstep.
	Replace Policy = iota
	// Append concatenates every contribution to an ordered sequence.
	Append
)

func (p Policy) String() string {
	switch p {
	case Replace:
		return "REPLACE"
	case Append:
		return "APPEND"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts "replace" or "append" in any case.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REPLACE":
		return Replace, nil
	case "APPEND":
		return Append, nil
	}
	return 0, fmt.Errorf("unknown merge policy %q", s)
}

// Scope tells the session layer whether a field survives between runs.
type Scope int

const (
	// ScopeRun fields are reset at the start of every new run.
	ScopeRun Scope = iota
	// ScopeSession fields carry over from one run of a session to the next.
	ScopeSession
)

func (s Scope) String() string {
	if s == ScopeSession {
		return "session"
	}
	return "run"
}

// Field declares one member of the shared state.
type Field struct {
	Name   string
	Type   Type // For Append fields, the element type.
	Policy Policy
	Scope  Scope
}

// Schema is an ordered, immutable set of fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a Schema, rejecting empty or duplicate names and unknown policies.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("%w: field name cannot be empty", ErrInvalidSchema)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		if f.Policy != Replace && f.Policy != Append {
			return nil, fmt.Errorf("%w: field %q has unknown policy %v", ErrInvalidSchema, f.Name, f.Policy)
		}
		if f.Type == nil {
			f.Type = Any()
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustNew is like New but panics on error. Intended for package-level schemas.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is a declared field.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Init returns the zero state: Append fields as empty sequences, Replace
// fields unset.
func (s *Schema) Init() map[string]any {
	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		if f.Policy == Append {
			values[f.Name] = []any{}
		}
	}
	return values
}

// Reset returns a copy of values with every run-scoped field returned to its
// initial value. Session-scoped fields are kept.
func (s *Schema) Reset(values map[string]any) map[string]any {
	out := s.Init()
	for _, f := range s.fields {
		if f.Scope != ScopeSession {
			continue
		}
		if v, ok := values[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}
