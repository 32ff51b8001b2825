package contacts

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/scribe/internal/providers"
)

// Contact is one extracted staff contact.
type Contact struct {
	Name             string `json:"name,omitempty" yaml:"name,omitempty"`
	Title            string `json:"title,omitempty" yaml:"title,omitempty"`
	Department       string `json:"department,omitempty" yaml:"department,omitempty"`
	Email            string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone            string `json:"phone,omitempty" yaml:"phone,omitempty"`
	PhoneDescription string `json:"phoneDescription,omitempty" yaml:"phone_description,omitempty"`
	PhoneExtension   *int   `json:"phoneExtension,omitempty" yaml:"phone_extension,omitempty"`
}

// Result is the typed form of a contact extraction.
type Result struct {
	Contacts []Contact `json:"contacts" yaml:"contacts"`
}

// Decode is an optional typed view of a validated extraction. It fails when
// nested values do not fit the Contact fields, which shallow validation
// does not check, and it drops fields Contact does not declare.
func Decode(result providers.ExtractedResult) (*Result, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}
	if out.Contacts == nil {
		out.Contacts = []Contact{}
	}
	return &out, nil
}
