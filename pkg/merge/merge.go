// Package merge folds partial node updates into the shared state according
// to each field's declared policy. It is the only code that produces new
// state values; the runtime calls it strictly after a wavefront barrier.
package merge

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/schema"
)

// SeedWriter is the writer name used for caller-supplied seed input.
const SeedWriter = "__input__"

// Contribution is one writer's partial update.
type Contribution struct {
	NodeID string
	// Writes restricts the fields the writer may touch. Nil allows any
	// schema field.
	Writes []string
	Update domain.Update
}

// Error reports an update rejected by the merge rules.
type Error struct {
	NodeID string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("merge: update from %q to field %q: %v", e.NodeID, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrUndeclaredWrite is returned when a node writes a field it did not
// declare in its Writes list.
var ErrUndeclaredWrite = errors.New("field not declared as written by node")

// Engine applies updates against one schema.
type Engine struct {
	schema *schema.Schema
}

// New creates a merge engine for the schema.
func New(s *schema.Schema) *Engine {
	return &Engine{schema: s}
}

// Validate checks a contribution without applying it.
func (e *Engine) Validate(c Contribution) error {
	var errs []error
	for _, field := range sortedKeys(c.Update) {
		value := c.Update[field]
		if !e.schema.Has(field) {
			errs = append(errs, &Error{NodeID: c.NodeID, Field: field, Err: &schema.ValidationError{Key: field, Reason: "not defined in schema"}})
			continue
		}
		if c.Writes != nil && !slices.Contains(c.Writes, field) {
			errs = append(errs, &Error{NodeID: c.NodeID, Field: field, Err: ErrUndeclaredWrite})
			continue
		}
		if value == nil {
			continue
		}
		if err := e.schema.ValidateValue(field, value); err != nil {
			errs = append(errs, &Error{NodeID: c.NodeID, Field: field, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Apply validates every contribution, then folds them into a copy of values
// in the order given. On error values is returned untouched and nothing is
// applied.
//
// Replace fields take the written value (nil unsets the field). Append fields
// concatenate: slices are spread, scalars add one element.
func (e *Engine) Apply(values map[string]any, contribs []Contribution) (map[string]any, error) {
	var errs []error
	for _, c := range contribs {
		if err := e.Validate(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return values, errors.Join(errs...)
	}

	out := domain.CloneValues(values)
	for _, c := range contribs {
		for _, field := range sortedKeys(c.Update) {
			f, _ := e.schema.Field(field)
			value := c.Update[field]
			switch f.Policy {
			case schema.Append:
				out[field] = append(sequence(out[field]), schema.Elements(value)...)
			default:
				if value == nil {
					delete(out, field)
				} else {
					out[field] = value
				}
			}
		}
	}
	return out, nil
}

// Seed applies caller input to values. Any schema field may be seeded.
func (e *Engine) Seed(values map[string]any, seed domain.Update) (map[string]any, error) {
	if len(seed) == 0 {
		return domain.CloneValues(values), nil
	}
	return e.Apply(values, []Contribution{{NodeID: SeedWriter, Update: seed}})
}

func sequence(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case nil:
		return []any{}
	}
	return schema.Elements(v)
}

func sortedKeys(u domain.Update) []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
