// Package schema describes the output contract handed to the model as a tool
// input schema, and checks structured results against it.
//
// A Contract is deliberately small: a top-level object with typed properties
// and a required list. Validation is shallow; nested items and object shapes
// are passed to the model for guidance but only checked when strict
// validation is compiled in (see CompileStrict).
package schema

import "encoding/json"

// Kind is a JSON type tag used in a contract.
type Kind string

const (
	KindObject  Kind = "object"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
)

// Property describes one top-level field of a contract.
type Property struct {
	Kind        Kind           `json:"type"`
	Description string         `json:"description,omitempty"`
	Items       map[string]any `json:"items,omitempty"` // Opaque sub-schema for arrays
}

// Contract is the schema handed to the model and used to validate its answer.
// Treat it as immutable once built.
type Contract struct {
	Kind        Kind                `json:"type"`
	Properties  map[string]Property `json:"properties"`
	Required    []string            `json:"required"`
	Description string              `json:"description,omitempty"`
}

// Object builds an object contract from properties and required names.
func Object(properties map[string]Property, required ...string) Contract {
	if required == nil {
		required = []string{}
	}
	return Contract{
		Kind:       KindObject,
		Properties: properties,
		Required:   required,
	}
}

// JSON returns the contract encoded as a JSON schema document.
func (c Contract) JSON() (json.RawMessage, error) {
	return json.Marshal(c)
}

// MarshalJSON fills in defaults so a zero-value contract still encodes as a
// valid object schema.
func (c Contract) MarshalJSON() ([]byte, error) {
	type plain Contract
	if c.Kind == "" {
		c.Kind = KindObject
	}
	if c.Properties == nil {
		c.Properties = map[string]Property{}
	}
	if c.Required == nil {
		c.Required = []string{}
	}
	return json.Marshal(plain(c))
}
