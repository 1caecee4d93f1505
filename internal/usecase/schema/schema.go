// Package schema validates extracted model payloads against a declared shape and
// fills anything missing or invalid from a canonical default, field by field.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedSchema is returned when a schema declaration is inconsistent.
var ErrMalformedSchema = errors.New("malformed schema")

// Schema pairs a field declaration with the canonical default value of T.
// A Schema is immutable and safe for concurrent use.
type Schema[T any] struct {
	name   string
	fields []Field
	defMap map[string]any
}

// New declares a schema for T. def must be JSON-encodable to an object that
// carries every declared field with the declared kind.
func New[T any](name string, def T, fields ...Field) (*Schema[T], error) {
	if name == "" {
		return nil, fmt.Errorf("%w: schema name is empty", ErrMalformedSchema)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s declares no fields", ErrMalformedSchema, name)
	}
	if err := checkFields(fields, name); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("%w: %s default is not JSON-encodable: %v", ErrMalformedSchema, name, err)
	}
	decoded, err := decodeNumbers(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s default: %v", ErrMalformedSchema, name, err)
	}
	defMap, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s default must encode to a JSON object", ErrMalformedSchema, name)
	}
	if err := checkDefault(fields, defMap, name); err != nil {
		return nil, err
	}

	return &Schema[T]{name: name, fields: fields, defMap: defMap}, nil
}

// MustNew is New for package-level declarations. It panics on a malformed schema.
func MustNew[T any](name string, def T, fields ...Field) *Schema[T] {
	s, err := New(name, def, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name identifies the schema in logs and metrics.
func (s *Schema[T]) Name() string { return s.name }

// Fields returns the top-level declaration.
func (s *Schema[T]) Fields() []Field { return s.fields }

// FieldPaths lists every declared leaf field as a dotted path.
func (s *Schema[T]) FieldPaths() []string {
	return fieldPaths(s.fields, "")
}

// Default returns a fresh copy of the canonical default.
func (s *Schema[T]) Default() T {
	var out T
	// The default map was produced from a T, so decoding it back cannot fail.
	_ = remarshal(s.defMap, &out)
	return out
}

// PreserveLines reports whether any string field needs its line breaks kept.
func (s *Schema[T]) PreserveLines() bool {
	return anyMultiline(s.fields)
}

func anyMultiline(fields []Field) bool {
	for _, f := range fields {
		if f.Multiline {
			return true
		}
		if anyMultiline(f.Fields) {
			return true
		}
		if f.Items != nil && (f.Items.Multiline || anyMultiline(f.Items.Fields)) {
			return true
		}
	}
	return false
}

func checkFields(fields []Field, path string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has a field without a name", ErrMalformedSchema, path)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s.%s declared twice", ErrMalformedSchema, path, f.Name)
		}
		seen[f.Name] = struct{}{}
		if err := checkField(f, path+"."+f.Name); err != nil {
			return err
		}
	}
	return nil
}

func checkField(f Field, path string) error {
	if len(f.Enum) > 0 && f.Kind != KindString {
		return fmt.Errorf("%w: %s has an enum but is %s", ErrMalformedSchema, path, f.Kind)
	}
	if (f.Min != nil || f.Max != nil || f.Clamp) && f.Kind != KindNumber && f.Kind != KindInteger {
		return fmt.Errorf("%w: %s has a range but is %s", ErrMalformedSchema, path, f.Kind)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("%w: %s range min exceeds max", ErrMalformedSchema, path)
	}
	if f.Clamp && f.Min == nil && f.Max == nil {
		return fmt.Errorf("%w: %s is clampable without a range", ErrMalformedSchema, path)
	}
	switch f.Kind {
	case KindObject:
		if len(f.Fields) == 0 {
			return fmt.Errorf("%w: %s object declares no fields", ErrMalformedSchema, path)
		}
		return checkFields(f.Fields, path)
	case KindArray:
		if f.Items == nil {
			return fmt.Errorf("%w: %s array has no item shape", ErrMalformedSchema, path)
		}
		return checkField(*f.Items, path+"[]")
	}
	return nil
}

func checkDefault(fields []Field, def map[string]any, path string) error {
	for _, f := range fields {
		p := path + "." + f.Name
		v, ok := def[f.Name]
		if !ok {
			return fmt.Errorf("%w: default has no value for %s", ErrMalformedSchema, p)
		}
		if v == nil && f.Kind == KindArray {
			// nil Go slices encode as null; the canonical default is an empty list.
			v = []any{}
			def[f.Name] = v
		}
		if !kindMatches(f.Kind, v) {
			return fmt.Errorf("%w: default value for %s is not %s", ErrMalformedSchema, p, f.Kind)
		}
		if f.Kind == KindObject {
			if err := checkDefault(f.Fields, v.(map[string]any), p); err != nil {
				return err
			}
		}
	}
	return nil
}

// kindMatches checks the JSON kind of a decoded value without coercion.
func kindMatches(k Kind, v any) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		_, ok := v.(json.Number)
		return ok
	case KindInteger:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	}
	return false
}

func decodeNumbers(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func remarshal(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
