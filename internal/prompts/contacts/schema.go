package contacts

import "github.com/jackzampolin/scribe/internal/schema"

// contactItem is the per-contact schema. It is passed to the model as
// guidance and only enforced by strict validation.
func contactItem() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       str("The contact's name, which may include first name only or both first and last names"),
			"title":      str("The contact's job title"),
			"department": str("The contact's department"),
			"email":      str("The contact's email address"),
			"phone": str("The contact's phone number in international format (e.g., '+12344567890'). " +
				"Assume +1 for US when no country code is specified"),
			"phoneDescription": str("A description of what to expect when calling this number " +
				"(e.g., 'front desk', 'direct line', 'after-hours emergency line')"),
			"phoneExtension": map[string]any{
				"type":        "integer",
				"description": "The contact's phone extension in integer format",
			},
		},
		"anyOf": []any{
			map[string]any{"required": []any{"name"}},
			map[string]any{"required": []any{"email"}},
			map[string]any{"required": []any{"phone"}},
		},
	}
}

// Contract returns the extraction contract: a required contacts array.
func Contract() schema.Contract {
	return schema.Object(map[string]schema.Property{
		"contacts": {
			Kind:  schema.KindArray,
			Items: contactItem(),
		},
	}, "contacts")
}
