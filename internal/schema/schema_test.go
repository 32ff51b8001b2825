package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func nameContract() Contract {
	return Object(map[string]Property{
		"name": {Kind: KindString},
	}, "name")
}

func TestValidate_RequiredFields(t *testing.T) {
	c := Object(map[string]Property{
		"contacts": {Kind: KindArray},
	}, "contacts")

	t.Run("empty object is invalid", func(t *testing.T) {
		err := c.Validate(map[string]any{})
		if err == nil {
			t.Fatal("expected error for missing required field")
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if vErr.Field != "contacts" {
			t.Errorf("Field = %q, want contacts", vErr.Field)
		}
	})

	t.Run("missing required fails regardless of other fields", func(t *testing.T) {
		v := map[string]any{"other": "x", "more": 1.0}
		if Valid(v, c) {
			t.Error("expected invalid")
		}
	})

	t.Run("present required is valid", func(t *testing.T) {
		if !Valid(map[string]any{"contacts": []any{}}, c) {
			t.Error("expected valid")
		}
	})
}

func TestValidate_KindMismatch(t *testing.T) {
	c := nameContract()

	if Valid(map[string]any{"name": 42.0}, c) {
		t.Error("numeric value in string field should be invalid")
	}
	if !Valid(map[string]any{"name": "Jordan"}, c) {
		t.Error("string value in string field should be valid")
	}
}

func TestValidate_AllKinds(t *testing.T) {
	c := Object(map[string]Property{
		"s": {Kind: KindString},
		"n": {Kind: KindNumber},
		"b": {Kind: KindBoolean},
		"a": {Kind: KindArray},
		"o": {Kind: KindObject},
	})

	tests := []struct {
		name  string
		value map[string]any
		valid bool
	}{
		{"all correct", map[string]any{"s": "x", "n": 1.5, "b": true, "a": []any{1.0}, "o": map[string]any{}}, true},
		{"json number is numeric", map[string]any{"n": json.Number("12")}, true},
		{"string in number", map[string]any{"n": "12"}, false},
		{"number in boolean", map[string]any{"b": 1.0}, false},
		{"object in array", map[string]any{"a": map[string]any{}}, false},
		{"array in object", map[string]any{"o": []any{}}, false},
		{"null in object", map[string]any{"o": nil}, false},
		{"null in string", map[string]any{"s": nil}, false},
		{"absent optional fields", map[string]any{}, true},
		{"extra fields ignored", map[string]any{"unknown": 1.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.value)
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestValidate_NonObjectValues(t *testing.T) {
	c := Object(nil)
	for _, v := range []any{nil, "str", 1.0, true, []any{}} {
		if Valid(v, c) {
			t.Errorf("Valid(%#v) = true, want false", v)
		}
	}
	var nilMap map[string]any
	if Valid(nilMap, c) {
		t.Error("nil map should be invalid")
	}
}

func TestValidate_Shallow(t *testing.T) {
	// Nested item shapes are not enforced by the default validator.
	c := Object(map[string]Property{
		"contacts": {
			Kind: KindArray,
			Items: map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
				"required":   []string{"name"},
			},
		},
	}, "contacts")

	v := map[string]any{"contacts": []any{map[string]any{"name": 7.0}}}
	if err := c.Validate(v); err != nil {
		t.Errorf("shallow Validate() error = %v, want nil", err)
	}
}

func TestValidate_UncheckedKinds(t *testing.T) {
	c := Object(map[string]Property{"ext": {Kind: KindInteger}})
	if !Valid(map[string]any{"ext": "not a number"}, c) {
		t.Error("integer kind is not checked at the top level")
	}
}

func TestValidationError_Message(t *testing.T) {
	err := nameContract().Validate(map[string]any{"name": true})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"name"`) || !strings.Contains(err.Error(), "boolean") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestContract_JSON(t *testing.T) {
	raw, err := nameContract().JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["type"] != "object" {
		t.Errorf("type = %v, want object", doc["type"])
	}
	props, ok := doc["properties"].(map[string]any)
	if !ok || props["name"] == nil {
		t.Errorf("properties = %v", doc["properties"])
	}
	if _, ok := props["name"].(map[string]any)["items"]; ok {
		t.Error("items should be omitted when unset")
	}
}

func TestCompileStrict(t *testing.T) {
	c := Object(map[string]Property{
		"contacts": {
			Kind: KindArray,
			Items: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":           map[string]any{"type": "string"},
					"phoneExtension": map[string]any{"type": "integer"},
				},
			},
		},
	}, "contacts")

	strict, err := CompileStrict(c)
	if err != nil {
		t.Fatalf("CompileStrict() error = %v", err)
	}

	valid := map[string]any{"contacts": []any{map[string]any{"name": "Dana", "phoneExtension": 12.0}}}
	if err := strict.Validate(valid); err != nil {
		t.Errorf("Validate(valid) error = %v", err)
	}

	nested := map[string]any{"contacts": []any{map[string]any{"name": 7.0}}}
	if err := strict.Validate(nested); err == nil {
		t.Error("strict validation should reject nested type mismatch")
	}

	fractional := map[string]any{"contacts": []any{map[string]any{"phoneExtension": 1.5}}}
	var vErr *ValidationError
	if err := strict.Validate(fractional); !errors.As(err, &vErr) {
		t.Errorf("expected *ValidationError, got %v", err)
	}
}
