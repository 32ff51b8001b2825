package contacts

import (
	"context"

	"github.com/jackzampolin/scribe/internal/llmcall"
	"github.com/jackzampolin/scribe/internal/prompts"
	"github.com/jackzampolin/scribe/internal/providers"
)

// PromptRef identifies the embedded contact prompt for call records.
func PromptRef() llmcall.PromptRef {
	return llmcall.PromptRef{Key: UserPromptKey, Hash: prompts.HashText(userPromptTmpl)}
}

// Extract runs one contact extraction for transcript through e and returns
// the validated output as-is. Nested contact fields are not reshaped; use
// Decode for a typed view. Errors from e are returned unwrapped so callers
// can classify them.
func Extract(ctx context.Context, e providers.Extractor, transcript string) (providers.ExtractedResult, error) {
	req, err := BuildRequest(transcript)
	if err != nil {
		return nil, err
	}
	return e.Extract(llmcall.WithPrompt(ctx, PromptRef()), req.Prompt, req.Schema)
}
