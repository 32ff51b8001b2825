// Package contacts builds the contact-extraction request for call
// transcripts: the embedded instruction prompt with the transcript appended,
// plus the contract the model's answer must satisfy.
package contacts

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/jackzampolin/scribe/internal/prompts"
	"github.com/jackzampolin/scribe/internal/providers"
)

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// DefaultCountryCode is assumed for phone numbers given without one.
const DefaultCountryCode = "+1"

// Prompt keys
const (
	UserPromptKey = "extract.contacts.user"
)

// UserPrompt renders the instruction prompt around a transcript. The
// transcript is inserted verbatim.
func UserPrompt(transcript string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Transcript         string
		DefaultCountryCode string
	}{
		Transcript:         transcript,
		DefaultCountryCode: DefaultCountryCode,
	}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render contact prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildRequest produces the prompt and contract for one transcript. Any
// string is a valid transcript; the error is only a template failure.
func BuildRequest(transcript string) (providers.ExtractionRequest, error) {
	prompt, err := UserPrompt(transcript)
	if err != nil {
		return providers.ExtractionRequest{}, err
	}
	return providers.ExtractionRequest{
		Prompt: prompt,
		Schema: Contract(),
	}, nil
}

// RegisterPrompts registers the contact prompts with the registry.
func RegisterPrompts(r *prompts.Registry) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Contact extraction prompt - staff contacts from a call transcript",
	})
}
