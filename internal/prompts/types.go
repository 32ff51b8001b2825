// Package prompts keeps the embedded prompt templates used for extraction.
//
// Each prompt package (for example prompts/contacts) embeds its .tmpl files
// and registers them here at startup. The registry records a SHA256 hash of
// every template so a stored LLM call can be traced back to the exact prompt
// version that produced it.
package prompts

// EmbeddedPrompt is a prompt template compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   `json:"key"`                   // Hierarchical key: extract.contacts.user
	Text        string   `json:"text"`                  // Go template text
	Description string   `json:"description,omitempty"` // Human-readable description
	Variables   []string `json:"variables,omitempty"`   // Template variables referenced by Text
	Hash        string   `json:"hash"`                  // SHA256 of Text
}
