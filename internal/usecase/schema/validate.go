package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

type mergeState struct {
	defaulted   []string
	contributed bool
}

func (st *mergeState) fallback(path string, required bool) {
	if required {
		st.defaulted = append(st.defaulted, path)
	}
}

// Validate merges payload over the default. It never fails: any declared field that is
// missing or invalid in payload takes its default value. Undeclared payload fields are dropped.
func (s *Schema[T]) Validate(payload any) domain.ValidatedResult[T] {
	st := &mergeState{}
	in, _ := payload.(map[string]any)
	merged := mergeObject(s.fields, in, s.defMap, "", st)

	var value T
	if err := remarshal(merged, &value); err != nil {
		// Unreachable for well-formed schemas; keep the shape guarantee anyway.
		return domain.ValidatedResult[T]{
			Value:           s.Default(),
			Degraded:        true,
			DefaultedFields: fieldPaths(s.fields, ""),
		}
	}

	return domain.ValidatedResult[T]{
		Value:           value,
		Degraded:        len(st.defaulted) > 0,
		DefaultedFields: st.defaulted,
		Contributed:     st.contributed,
	}
}

func mergeObject(fields []Field, in, def map[string]any, prefix string, st *mergeState) map[string]any {
	out := make(map[string]any, len(def))
	// Start from the default so members of T outside the declaration keep their values.
	for k, v := range def {
		out[k] = v
	}
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		dv := def[f.Name]
		v, present := in[f.Name]
		if !present || v == nil {
			out[f.Name] = dv
			st.fallback(path, !f.Optional)
			continue
		}

		if f.Kind == KindObject {
			obj, ok := v.(map[string]any)
			defObj, _ := dv.(map[string]any)
			if !ok {
				out[f.Name] = dv
				st.fallback(path, !f.Optional)
				continue
			}
			out[f.Name] = mergeObject(f.Fields, obj, defObj, path, st)
			continue
		}

		if f.Kind == KindArray {
			arr, ok := v.([]any)
			if !ok {
				out[f.Name] = dv
				st.fallback(path, !f.Optional)
				continue
			}
			out[f.Name] = validateItems(*f.Items, arr)
			st.contributed = true
			continue
		}

		if cv, ok := coerceScalar(f, v); ok {
			out[f.Name] = cv
			st.contributed = true
			continue
		}
		out[f.Name] = dv
		st.fallback(path, !f.Optional)
	}
	return out
}

// validateItems keeps the array elements that match the item shape. Object elements
// are merged over a zero-valued shape so each one is complete.
func validateItems(item Field, arr []any) []any {
	out := make([]any, 0, len(arr))
	for _, v := range arr {
		switch item.Kind {
		case KindObject:
			obj, ok := v.(map[string]any)
			if !ok {
				continue
			}
			zero, _ := zeroValue(item).(map[string]any)
			out = append(out, mergeObject(item.Fields, obj, zero, "", &mergeState{}))
		case KindArray:
			inner, ok := v.([]any)
			if !ok {
				continue
			}
			out = append(out, validateItems(*item.Items, inner))
		default:
			if cv, ok := coerceScalar(item, v); ok {
				out = append(out, cv)
			}
		}
	}
	return out
}

// coerceScalar returns the validated form of a scalar value. Numbers given as
// numeric strings and strings given as numbers are accepted; everything else must
// already have the declared kind.
func coerceScalar(f Field, v any) (any, bool) {
	switch f.Kind {
	case KindString:
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case bool:
			s = strconv.FormatBool(t)
		default:
			return nil, false
		}
		if len(f.Enum) == 0 {
			return s, true
		}
		trimmed := strings.TrimSpace(s)
		for _, allowed := range f.Enum {
			if strings.EqualFold(trimmed, allowed) {
				return allowed, true
			}
		}
		return nil, false

	case KindNumber, KindInteger:
		n, ok := toFloat(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false
		}
		if f.Kind == KindInteger && n != math.Trunc(n) {
			return nil, false
		}
		if f.Min != nil && n < *f.Min {
			if !f.Clamp {
				return nil, false
			}
			n = *f.Min
		}
		if f.Max != nil && n > *f.Max {
			if !f.Clamp {
				return nil, false
			}
			n = *f.Max
		}
		return json.Number(strconv.FormatFloat(n, 'f', -1, 64)), true

	case KindBool:
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return nil, false
			}
			return b, true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", "")), 64)
		return f, err == nil
	}
	return 0, false
}

// zeroValue builds the empty-state value for a field: "", 0, false, [] or an object of zeros.
func zeroValue(f Field) any {
	switch f.Kind {
	case KindString:
		return ""
	case KindNumber, KindInteger:
		return json.Number("0")
	case KindBool:
		return false
	case KindArray:
		return []any{}
	case KindObject:
		obj := make(map[string]any, len(f.Fields))
		for _, sub := range f.Fields {
			obj[sub.Name] = zeroValue(sub)
		}
		return obj
	}
	return nil
}

func fieldPaths(fields []Field, prefix string) []string {
	var out []string
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if f.Kind == KindObject {
			out = append(out, fieldPaths(f.Fields, path)...)
			continue
		}
		out = append(out, path)
	}
	return out
}
