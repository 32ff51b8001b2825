package providers

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/scribe/internal/schema"
)

const (
	// StructuredOutputTool is the single tool offered to the model.
	StructuredOutputTool = "structured_output"

	structuredOutputDescription = "Output should conform to the provided JSON schema"
)

// ExtractionRequest is one prompt plus the contract its answer must satisfy.
type ExtractionRequest struct {
	Prompt string
	Schema schema.Contract
}

// RequestParams are the fixed provider parameters applied to every request.
type RequestParams struct {
	Model     string
	MaxTokens int
}

// EncodeRequest builds the Messages request for an extraction. The result is
// the same for every attempt of a call.
func EncodeRequest(req ExtractionRequest, params RequestParams) MessagesRequest {
	return MessagesRequest{
		Model:     params.Model,
		MaxTokens: params.MaxTokens,
		Tools: []AnthropicTool{
			{
				Name:        StructuredOutputTool,
				Description: structuredOutputDescription,
				InputSchema: req.Schema,
			},
		},
		Messages: []Message{
			{Role: "user", Content: req.Prompt},
		},
	}
}

// DecodeResponse parses a 2xx response body.
func DecodeResponse(body []byte) (*MessagesResponse, error) {
	var resp MessagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("failed to unmarshal response: %w", err), Body: truncateBody(body)}
	}
	return &resp, nil
}

// StructuredOutput returns the input of the first tool_use block. Later
// blocks, and any text, are ignored.
func (r *MessagesResponse) StructuredOutput() (json.RawMessage, error) {
	for _, block := range r.Content {
		switch b := block.(type) {
		case ToolUseBlock:
			return b.Input, nil
		case TextBlock:
			continue
		}
	}
	return nil, ErrMissingStructuredOutput
}

// decodeToolInput turns the raw tool input into a generic JSON value for
// validation.
func decodeToolInput(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("failed to decode tool input: %w", err)}
	}
	return v, nil
}

func truncateBody(body []byte) string {
	const max = 2048
	if len(body) > max {
		return string(body[:max]) + "...[truncated]"
	}
	return string(body)
}
