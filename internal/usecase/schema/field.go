package schema

import "slices"

// Kind is the JSON kind a field must have.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "string"
	}
}

// Field declares one member of a result object. Fields are required unless Optional is set.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool
	// Enum restricts string values. Matching ignores case.
	Enum []string
	Min  *float64
	Max  *float64
	// Clamp pulls out-of-range numbers to the nearest bound instead of using the default.
	Clamp bool
	// Multiline marks string fields whose line breaks must survive extraction.
	Multiline bool
	Fields    []Field
	Items     *Field
	Example   any
}

func String(name string) Field  { return Field{Name: name, Kind: KindString} }
func Number(name string) Field  { return Field{Name: name, Kind: KindNumber} }
func Integer(name string) Field { return Field{Name: name, Kind: KindInteger} }
func Bool(name string) Field    { return Field{Name: name, Kind: KindBool} }

func Object(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObject, Fields: fields}
}

func Array(name string, items Field) Field {
	return Field{Name: name, Kind: KindArray, Items: &items}
}

// ObjectItem declares the element shape of an array of objects.
func ObjectItem(fields ...Field) Field {
	return Field{Kind: KindObject, Fields: fields}
}

// StringItem declares the element shape of an array of strings.
func StringItem() Field { return Field{Kind: KindString} }

// OneOf restricts a string field to the given values.
func (f Field) OneOf(values ...string) Field {
	f.Enum = slices.Clone(values)
	return f
}

// Range limits a numeric field to [min, max].
func (f Field) Range(lo, hi float64) Field {
	f.Min = &lo
	f.Max = &hi
	return f
}

// Clamped clamps out-of-range values instead of falling back to the default.
func (f Field) Clamped() Field {
	f.Clamp = true
	return f
}

// Opt marks the field optional: a missing value is filled silently.
func (f Field) Opt() Field {
	f.Optional = true
	return f
}

// Lines keeps line breaks in this string field.
func (f Field) Lines() Field {
	f.Multiline = true
	return f
}

// Eg sets the value shown for this field in prompt examples.
func (f Field) Eg(v any) Field {
	f.Example = v
	return f
}
