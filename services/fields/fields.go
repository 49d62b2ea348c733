// Package fields describes the scalar inputs of a lead form (name, phone,
// email, counts, consent) and the predicates that decide their validity.
//
// A Schema is stateless and can be shared by every wizard built from the
// same form variant. Values are normalized on entry with Normalize and
// checked either one at a time (ValidateField, used by the step gate) or
// all together (Validate, used on submit).
package fields

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownField is returned for a field name the schema does not declare.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidSchema is returned by New for malformed field declarations.
	ErrInvalidSchema = errors.New("invalid field schema")
	// ErrWrongType is returned by Normalize when a value cannot represent the field kind.
	ErrWrongType = errors.New("value has the wrong type")
)

// Kind selects the validity predicate of a field.
type Kind string

const (
	KindText    Kind = "text"
	KindPhone   Kind = "phone"
	KindEmail   Kind = "email"
	KindCount   Kind = "count"
	KindConsent Kind = "consent"
)

// Field declares one scalar input.
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Kind  Kind   `yaml:"kind" json:"kind"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`

	// MinLength is the minimum rune count of a text field (default 1).
	MinLength int `yaml:"min_length,omitempty" json:"minLength,omitempty"`
	// Min is the smallest accepted value of a count field (default 1).
	Min int `yaml:"min,omitempty" json:"min,omitempty"`
	// Region is the default region used to parse phone numbers written
	// without a country calling code.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	// Message replaces the default error message of the kind.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
	// Transient fields are validated but never submitted (e.g. consent).
	Transient bool `yaml:"transient,omitempty" json:"transient,omitempty"`
}

// Result is the outcome of validating a full field set. Errors is keyed by
// field name and only holds failing fields.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Schema is an ordered, immutable set of field declarations.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New validates the declarations, applies per-kind defaults and returns
// the schema. Field order is preserved.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field [%d] has no name", ErrInvalidSchema, i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		switch f.Kind {
		case KindText:
			if f.MinLength <= 0 {
				f.MinLength = 1
			}
		case KindCount:
			if f.Min <= 0 {
				f.Min = 1
			}
		case KindPhone:
			f.Region = strings.ToUpper(strings.TrimSpace(f.Region))
		case KindEmail, KindConsent:
		default:
			return nil, fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidSchema, f.Name, f.Kind)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustNew is New for package-level catalogs; it panics on error.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declarations in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up one declaration by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Defaults returns the untouched value of every field: false for consent,
// the empty string otherwise.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = zeroValue(f.Kind)
	}
	return out
}

// Normalize converts a raw input value into the canonical representation
// stored for the field. It does not validate.
func (s *Schema) Normalize(name string, value any) (any, error) {
	f, ok := s.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	v, err := normalize(f, value)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return v, nil
}

// ValidateField reports whether value satisfies the predicate of one field,
// independently of every other field. Unknown names are invalid.
func (s *Schema) ValidateField(name string, value any) bool {
	f, ok := s.Field(name)
	if !ok {
		return false
	}
	return check(f, value) == ""
}

// Message returns the error message for value in field name, or "" when the
// value is valid.
func (s *Schema) Message(name string, value any) string {
	f, ok := s.Field(name)
	if !ok {
		return ErrUnknownField.Error()
	}
	return check(f, value)
}

// Validate checks every declared field. Missing values are treated as the
// field's default.
func (s *Schema) Validate(values map[string]any) Result {
	res := Result{Valid: true}
	for _, f := range s.fields {
		v, ok := values[f.Name]
		if !ok {
			v = zeroValue(f.Kind)
		}
		if msg := check(f, v); msg != "" {
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors[f.Name] = msg
			res.Valid = false
		}
	}
	return res
}

func zeroValue(k Kind) any {
	if k == KindConsent {
		return false
	}
	return ""
}
