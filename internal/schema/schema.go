// Package schema holds the typed argument definitions for every bridge
// operation. Defaulting and validation happen here in a single pass, before
// any network call is made on behalf of the caller.
package schema

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeEnum    FieldType = "enum"
)

// Field describes one argument of an operation. A field with a Default is
// nullable: absent or explicitly-null both resolve to the default, while a
// present value is type-checked and used as-is.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Enum     []string
	Default  any
}

// Schema is the argument contract of a single operation.
type Schema struct {
	Op     string
	Fields []Field
}

// FieldError reports a schema violation. It is produced before any I/O, so a
// rejected invocation never reaches the backend.
type FieldError struct {
	Op      string
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q %s", e.Op, e.Field, e.Message)
}

// Apply validates raw arguments against the schema and fills defaults,
// returning a fully resolved argument map. Arguments outside the schema are
// dropped, so runtimes that attach extra metadata still validate cleanly.
// The input map is not modified.
func (s Schema) Apply(raw map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				return nil, &FieldError{Op: s.Op, Field: f.Name, Message: "is required"}
			}
			if f.Default != nil {
				resolved[f.Name] = f.Default
			}
			continue
		}
		checked, err := f.check(v)
		if err != nil {
			return nil, &FieldError{Op: s.Op, Field: f.Name, Message: err.Error()}
		}
		resolved[f.Name] = checked
	}
	return resolved, nil
}

func (f Field) check(v any) (any, error) {
	switch f.Type {
	case TypeString:
		sv, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %T", v)
		}
		return sv, nil
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("must be a number, got %T", v)
	case TypeBoolean:
		bv, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean, got %T", v)
		}
		return bv, nil
	case TypeEnum:
		sv, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be one of %s, got %T", strings.Join(f.Enum, "|"), v)
		}
		for _, allowed := range f.Enum {
			if sv == allowed {
				return sv, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s, got %q", strings.Join(f.Enum, "|"), sv)
	}
	return nil, fmt.Errorf("has unknown type %q", f.Type)
}

// String returns the resolved string value for name, or empty when unset.
func String(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// Number returns the resolved numeric value for name, or zero when unset.
func Number(args map[string]any, name string) float64 {
	if v, ok := args[name].(float64); ok {
		return v
	}
	if v, ok := args[name].(int); ok {
		return float64(v)
	}
	return 0
}

// Bool returns the resolved boolean value for name, or false when unset.
func Bool(args map[string]any, name string) bool {
	v, _ := args[name].(bool)
	return v
}
