// Package llmcall provides LLM call recording and querying for traceability.
// Every extraction is recorded with its prompt key and hash, the structured
// output, and timing and token metrics.
package llmcall

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/scribe/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID        string `json:"id"`
	RequestID string `json:"request_id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`
	Attempts  int       `json:"attempts"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key,omitempty"`
	PromptHash string `json:"prompt_hash,omitempty"` // SHA256 of the template that built the prompt

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	StopReason   string `json:"stop_reason,omitempty"`

	// Response
	Output json.RawMessage `json:"output,omitempty"`

	// Status
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PromptRef identifies the prompt template behind a call.
type PromptRef struct {
	Key  string
	Hash string
}

type promptKey struct{}

// WithPrompt attaches a prompt reference to ctx so the recorder can link the
// call to the template that produced it.
func WithPrompt(ctx context.Context, ref PromptRef) context.Context {
	return context.WithValue(ctx, promptKey{}, ref)
}

// PromptFrom returns the prompt reference attached to ctx, if any.
func PromptFrom(ctx context.Context) (PromptRef, bool) {
	ref, ok := ctx.Value(promptKey{}).(PromptRef)
	return ref, ok
}

// FromReport creates a Call from an extraction report.
func FromReport(report providers.CallReport, prompt PromptRef) *Call {
	call := &Call{
		ID:           uuid.New().String(),
		RequestID:    report.RequestID,
		Timestamp:    time.Now().UTC(),
		LatencyMs:    int(report.Latency.Milliseconds()),
		Attempts:     report.Attempts,
		PromptKey:    prompt.Key,
		PromptHash:   prompt.Hash,
		Provider:     providers.AnthropicName,
		Model:        report.Model,
		InputTokens:  report.Usage.InputTokens,
		OutputTokens: report.Usage.OutputTokens,
		StopReason:   report.StopReason,
		Output:       report.Output,
		Success:      report.Err == nil,
	}

	if report.Err != nil {
		call.ErrorKind = string(providers.Classify(report.Err))
		call.Error = report.Err.Error()
	}

	return call
}
