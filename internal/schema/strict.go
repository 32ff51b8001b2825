package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Strict is a compiled, fully recursive JSON Schema validator for a contract.
// It is opt-in: the default extraction path only runs Contract.Validate.
type Strict struct {
	schema *jsonschema.Schema
}

// CompileStrict compiles the contract, nested items included, as a JSON
// Schema document.
func CompileStrict(c Contract) (*Strict, error) {
	raw, err := c.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize contract: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("contract.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load contract schema: %w", err)
	}
	compiled, err := compiler.Compile("contract.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile contract schema: %w", err)
	}
	return &Strict{schema: compiled}, nil
}

// Validate checks v against the full schema.
func (s *Strict) Validate(v any) error {
	// Round-trip so the validator sees plain JSON types regardless of how v
	// was produced.
	raw, err := json.Marshal(v)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("value is not JSON-encodable: %v", err)}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("value is not JSON-decodable: %v", err)}
	}

	if err := s.schema.Validate(doc); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("does not match schema: %v", err)}
	}
	return nil
}
