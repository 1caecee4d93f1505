package schema

import (
	"encoding/json"
	"strings"
)

const exampleIndent = "  "

// Example renders the JSON shape a model must return, in declaration order.
// Prompts embed this text so the prompt contract and the validator share one source.
func (s *Schema[T]) Example() string {
	var sb strings.Builder
	writeObject(&sb, s.fields, 0)
	return sb.String()
}

func writeObject(sb *strings.Builder, fields []Field, depth int) {
	sb.WriteString("{\n")
	for i, f := range fields {
		sb.WriteString(strings.Repeat(exampleIndent, depth+1))
		sb.WriteString(quote(f.Name))
		sb.WriteString(": ")
		writeValue(sb, f, depth+1)
		if i < len(fields)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat(exampleIndent, depth))
	sb.WriteByte('}')
}

func writeValue(sb *strings.Builder, f Field, depth int) {
	switch f.Kind {
	case KindObject:
		writeObject(sb, f.Fields, depth)
	case KindArray:
		sb.WriteByte('[')
		if f.Items.Kind == KindObject {
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat(exampleIndent, depth+1))
			writeObject(sb, f.Items.Fields, depth+1)
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat(exampleIndent, depth))
		} else {
			writeValue(sb, *f.Items, depth)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(scalarExample(f))
	}
}

func scalarExample(f Field) string {
	if f.Example != nil {
		if raw, err := json.Marshal(f.Example); err == nil {
			return string(raw)
		}
	}
	switch f.Kind {
	case KindString:
		if len(f.Enum) > 0 {
			return quote(strings.Join(f.Enum, "|"))
		}
		return quote("string")
	case KindBool:
		return "false"
	default:
		return "0"
	}
}

func quote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
