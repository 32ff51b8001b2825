package providers

import (
	"encoding/json"

	"github.com/jackzampolin/scribe/internal/schema"
)

// Anthropic Messages API request/response types

// MessagesRequest is the outbound request envelope.
type MessagesRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Tools     []AnthropicTool `json:"tools"`
	Messages  []Message       `json:"messages"`
}

// AnthropicTool describes a tool the model may call; its input schema is the
// extraction contract.
type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema schema.Contract `json:"input_schema"`
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

// MessagesResponse is the inbound response envelope.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"-"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Usage reports token counts for one response.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// ContentBlock is one segment of a response. The set of variants is closed:
// TextBlock and ToolUseBlock.
type ContentBlock interface {
	contentBlock()
}

// TextBlock is prose returned by the model.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a tool invocation carrying machine-readable arguments.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

func (TextBlock) contentBlock()    {}
func (ToolUseBlock) contentBlock() {}

// wireContentBlock is the JSON shape shared by every block type.
type wireContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// UnmarshalJSON decodes the envelope and converts content blocks into their
// typed variants. Block types other than text and tool_use are dropped.
func (r *MessagesResponse) UnmarshalJSON(data []byte) error {
	type envelope MessagesResponse
	var wire struct {
		envelope
		Content []wireContentBlock `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = MessagesResponse(wire.envelope)
	r.Content = make([]ContentBlock, 0, len(wire.Content))
	for _, b := range wire.Content {
		switch b.Type {
		case "text":
			r.Content = append(r.Content, TextBlock{Text: b.Text})
		case "tool_use":
			r.Content = append(r.Content, ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return nil
}

// MarshalJSON encodes the envelope in wire form; used by test fixtures and
// the mock extractor.
func (r MessagesResponse) MarshalJSON() ([]byte, error) {
	type envelope MessagesResponse
	wire := struct {
		envelope
		Content []wireContentBlock `json:"content"`
	}{envelope: envelope(r)}

	wire.Content = make([]wireContentBlock, 0, len(r.Content))
	for _, block := range r.Content {
		switch b := block.(type) {
		case TextBlock:
			wire.Content = append(wire.Content, wireContentBlock{Type: "text", Text: b.Text})
		case ToolUseBlock:
			wire.Content = append(wire.Content, wireContentBlock{Type: "tool_use", ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return json.Marshal(wire)
}
