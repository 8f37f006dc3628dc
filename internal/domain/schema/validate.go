package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValidationError names the offending field path and the constraint it broke.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "arguments: " + e.Constraint
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Constraint)
}

// Validate parses raw tool-call arguments and checks them against s.
// An empty string is treated as an empty object.
func Validate(s *Schema, raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, &ValidationError{Constraint: "must be a valid JSON object (" + err.Error() + ")"}
	}

	args, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ValidationError{Constraint: "must be a JSON object"}
	}

	if err := ValidateArgs(s, args); err != nil {
		return nil, err
	}
	return args, nil
}

// ValidateArgs checks already decoded arguments. Used again when a gate rewrites them.
func ValidateArgs(s *Schema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	return validateObject("", s.Properties, s.Strict, args)
}

func validateObject(path string, props []Property, strict bool, obj map[string]any) error {
	for _, p := range props {
		v, present := obj[p.Name]
		if p.Required && (!present || v == nil) {
			return &ValidationError{Field: join(path, p.Name), Constraint: "is required"}
		}
	}

	for _, p := range props {
		v, present := obj[p.Name]
		if !present || v == nil {
			continue
		}
		if err := validateValue(join(path, p.Name), p, v); err != nil {
			return err
		}
	}

	if !strict {
		return nil
	}

	known := make(map[string]struct{}, len(props))
	for _, p := range props {
		known[p.Name] = struct{}{}
	}
	var unknown []string
	for k := range obj {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{Field: join(path, unknown[0]), Constraint: "is not a recognized field"}
	}
	return nil
}

func validateValue(path string, p Property, v any) error {
	switch p.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return typeError(path, "string", v)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return &ValidationError{Field: path, Constraint: fmt.Sprintf("must be one of [%s]", strings.Join(p.Enum, ", "))}
		}
		if p.Pattern != nil && !p.Pattern.MatchString(s) {
			return &ValidationError{Field: path, Constraint: fmt.Sprintf("must match %s", p.Pattern.String())}
		}

	case KindNumber:
		if _, ok := v.(float64); !ok {
			return typeError(path, "number", v)
		}

	case KindInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return typeError(path, "integer", v)
		}

	case KindBoolean:
		if _, ok := v.(bool); !ok {
			return typeError(path, "boolean", v)
		}

	case KindScalar:
		switch v.(type) {
		case nil, string, float64, bool:
		default:
			return typeError(path, "string, number, boolean or null", v)
		}

	case KindArray:
		items, ok := v.([]any)
		if !ok {
			return typeError(path, "array", v)
		}
		if p.Items == nil {
			return nil
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil && p.Items.Kind != KindScalar {
				return typeError(itemPath, string(p.Items.Kind), item)
			}
			if err := validateValue(itemPath, *p.Items, item); err != nil {
				return err
			}
		}

	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeError(path, "object", v)
		}
		return validateObject(path, p.Properties, p.Strict, obj)
	}

	return nil
}

func typeError(path, expected string, v any) error {
	return &ValidationError{Field: path, Constraint: fmt.Sprintf("must be %s, got %s", expected, describe(v))}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
