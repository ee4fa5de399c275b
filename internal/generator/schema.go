package generator

import (
	"fmt"
	"math"

	"genforge/internal/domain"
)

// FieldType enumerates the value types a schema field accepts.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
)

// Field describes one input or output parameter.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Enum     []string
	Min      *float64
	Max      *float64
}

// Schema is a declarative descriptor of a generator's parameter surface.
type Schema struct {
	Fields []Field
}

// Validate checks params against the schema. Unknown keys are accepted;
// providers routinely carry passthrough options. The first violation is
// returned as a domain.ValidationError.
func (s Schema) Validate(params map[string]any) error {
	for _, f := range s.Fields {
		raw, ok := params[f.Name]
		if !ok || raw == nil {
			if f.Required {
				return &domain.ValidationError{Field: f.Name, Reason: "required"}
			}
			continue
		}
		if err := f.check(raw); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) check(raw any) error {
	switch f.Type {
	case FieldString:
		s, ok := raw.(string)
		if !ok {
			return &domain.ValidationError{Field: f.Name, Reason: "expected string"}
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			return &domain.ValidationError{Field: f.Name, Reason: fmt.Sprintf("value %q not in %v", s, f.Enum)}
		}
	case FieldNumber:
		n, ok := asNumber(raw)
		if !ok {
			return &domain.ValidationError{Field: f.Name, Reason: "expected number"}
		}
		if f.Min != nil && n < *f.Min {
			return &domain.ValidationError{Field: f.Name, Reason: fmt.Sprintf("%v below minimum %v", n, *f.Min)}
		}
		if f.Max != nil && n > *f.Max {
			return &domain.ValidationError{Field: f.Name, Reason: fmt.Sprintf("%v above maximum %v", n, *f.Max)}
		}
	case FieldBool:
		if _, ok := raw.(bool); !ok {
			return &domain.ValidationError{Field: f.Name, Reason: "expected bool"}
		}
	default:
		return &domain.ValidationError{Field: f.Name, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
	}
	return nil
}

// Number extracts a numeric param, accepting the types JSON decoding and
// YAML decoding produce. Returns fallback when absent or non-numeric.
func Number(params map[string]any, key string, fallback float64) float64 {
	if raw, ok := params[key]; ok {
		if n, ok := asNumber(raw); ok {
			return n
		}
	}
	return fallback
}

// String extracts a string param with a fallback.
func String(params map[string]any, key, fallback string) string {
	if raw, ok := params[key]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return float64(v), true
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Float64Ptr is a convenience for building Min/Max bounds inline.
func Float64Ptr(v float64) *float64 { return &v }
