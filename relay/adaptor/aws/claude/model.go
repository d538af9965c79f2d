package claude

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
)

// AnthropicVersion is the fixed version string Bedrock expects for Claude payloads.
const AnthropicVersion = "bedrock-2023-05-31"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	BlockTypeText       = "text"
	BlockTypeImage      = "image"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// Request is the InvokeModel body for Claude models.
type Request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	Tools            []Tool    `json:"tools,omitempty"`
}

type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is either a plain string or a list of content blocks.
type MessageContent struct {
	text   string
	blocks []ContentBlock
}

// TextContent wraps a plain string.
func TextContent(text string) MessageContent {
	return MessageContent{text: text}
}

// BlockContent wraps a list of blocks.
func BlockContent(blocks ...ContentBlock) MessageContent {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return MessageContent{blocks: blocks}
}

// IsText reports whether the content is a plain string.
func (c MessageContent) IsText() bool {
	return c.blocks == nil
}

// Text returns the plain string, or the concatenated text blocks.
func (c MessageContent) Text() string {
	if c.IsText() {
		return c.text
	}
	var out string
	for _, b := range c.blocks {
		if b.Type == BlockTypeText {
			out += b.Text
		}
	}
	return out
}

// Blocks returns the content blocks, nil for plain string content.
func (c MessageContent) Blocks() []ContentBlock {
	return c.blocks
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText() {
		return json.Marshal(c.text)
	}
	return json.Marshal(c.blocks)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = TextContent(text)
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return errors.Wrap(err, "content must be a string or a list of blocks")
	}
	*c = BlockContent(blocks...)
	return nil
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *ImageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// MarshalJSON always emits "text" for text blocks, even when empty.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if b.Type == BlockTypeText {
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: b.Type, Text: b.Text})
	}

	type plain ContentBlock
	return json.Marshal(plain(b))
}

// Tool is a function the model may call.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"input_schema"`
}

type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the InvokeModel body returned for Claude models.
type Response struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type,omitempty"`
	Role       string         `json:"role,omitempty"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason,omitempty"`
	Usage      *Usage         `json:"usage,omitempty"`
	// Completion is only set by the legacy text completions API.
	Completion string `json:"completion,omitempty"`
}
