package schema

import "fmt"

// ValidationError reports why a value does not satisfy a contract.
type ValidationError struct {
	Field  string // Empty when the value itself is the problem
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "response validation failed: " + e.Reason
	}
	return fmt.Sprintf("response validation failed: field %q %s", e.Field, e.Reason)
}

// Validate checks v against the contract.
//
// Only the top level is checked: v must be an object, every required name
// must be present, and every declared property that is present must carry a
// value of the declared kind. Undeclared fields are ignored.
func (c Contract) Validate(v any) error {
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return &ValidationError{Reason: fmt.Sprintf("expected an object, got %s", describe(v))}
	}

	for _, name := range c.Required {
		if _, ok := obj[name]; !ok {
			return &ValidationError{Field: name, Reason: "is required"}
		}
	}

	for name, prop := range c.Properties {
		value, ok := obj[name]
		if !ok {
			continue
		}
		if !matchesKind(prop.Kind, value) {
			return &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("must be %s, got %s", prop.Kind, describe(value)),
			}
		}
	}

	return nil
}

// Valid reports whether v satisfies the contract.
func Valid(v any, c Contract) bool {
	return c.Validate(v) == nil
}

// matchesKind reports whether value has the runtime shape for kind.
// Kinds without a check (integer, or anything unrecognized) always match.
func matchesKind(kind Kind, value any) bool {
	switch kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		return isNumber(value)
	case KindBoolean:
		_, ok := value.(bool)
		return ok
	case KindArray:
		_, ok := value.([]any)
		return ok
	case KindObject:
		m, ok := value.(map[string]any)
		return ok && m != nil
	default:
		return true
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case interface{ Float64() (float64, error) }: // json.Number
		return true
	}
	return false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if isNumber(v) {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
