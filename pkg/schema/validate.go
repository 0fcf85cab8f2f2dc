package schema

import (
	"errors"
	"reflect"
)

// ValidateValue checks a single value written to the named field. For Append
// fields a slice value is checked element by element, anything else is
// checked as one element.
func (s *Schema) ValidateValue(name string, value any) error {
	f, ok := s.Field(name)
	if !ok {
		return &ValidationError{Key: name, Reason: "not defined in schema"}
	}
	if f.Policy == Append {
		for _, elem := range Elements(value) {
			if err := f.Type.Validate(elem); err != nil {
				return &ValidationError{Key: name, Reason: err.Error(), Value: elem}
			}
		}
		return nil
	}
	if err := f.Type.Validate(value); err != nil {
		return &ValidationError{Key: name, Reason: err.Error(), Value: value}
	}
	return nil
}

// Validate checks that a whole state record conforms to the schema: no
// unknown keys, Append fields present as sequences, every value well typed.
// Unset Replace fields are allowed.
func (s *Schema) Validate(values map[string]any) error {
	var errs []error
	for key := range values {
		if !s.Has(key) {
			errs = append(errs, &ValidationError{Key: key, Reason: "not defined in schema"})
		}
	}
	for _, f := range s.fields {
		v, ok := values[f.Name]
		if !ok {
			if f.Policy == Append {
				errs = append(errs, &ValidationError{Key: f.Name, Reason: "required"})
			}
			continue
		}
		if f.Policy == Append && !isSlice(v) {
			errs = append(errs, &ValidationError{Key: f.Name, Reason: "expected sequence", Value: v})
			continue
		}
		if err := s.ValidateValue(f.Name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Elements flattens an Append contribution: slices and arrays are spread,
// any other value is a single element.
func Elements(value any) []any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
