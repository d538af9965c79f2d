package claude

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/tidwall/gjson"
)

const (
	InputTypeText  = "text"
	InputTypeImage = "image"

	// DefaultImageMediaType is used when binary input carries no usable mime type.
	DefaultImageMediaType = "image/png"
)

// ErrMissingBinaryData is returned when image input is requested without image bytes.
var ErrMissingBinaryData = errors.New("Missing binary image data for image input.")

// BinaryData is a base64 payload with its declared mime type.
type BinaryData struct {
	Data     string
	MimeType string
}

// BuildMessageContent returns the prompt for text input, and an image block
// followed by a text block for image input.
func BuildMessageContent(inputType, prompt string, binary *BinaryData) (MessageContent, error) {
	if inputType != InputTypeImage {
		return TextContent(prompt), nil
	}

	if binary == nil || binary.Data == "" {
		return MessageContent{}, ErrMissingBinaryData
	}

	mediaType := strings.TrimSpace(binary.MimeType)
	if mediaType == "" {
		mediaType = DefaultImageMediaType
	}

	return BlockContent(
		ContentBlock{
			Type: BlockTypeImage,
			Source: &ImageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      binary.Data,
			},
		},
		ContentBlock{Type: BlockTypeText, Text: prompt},
	), nil
}

// NewRequest builds a single-turn request around content.
func NewRequest(content MessageContent, maxTokens int, temperature *float64) *Request {
	return &Request{
		AnthropicVersion: AnthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []Message{{Role: RoleUser, Content: content}},
		Temperature:      temperature,
	}
}

// ParseResponse decodes an InvokeModel body.
func ParseResponse(body []byte) (*Response, error) {
	resp := new(Response)
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal claude response")
	}
	return resp, nil
}

// FirstText returns content[0].text, falling back to the legacy completion.
func (r *Response) FirstText() string {
	if len(r.Content) > 0 && r.Content[0].Text != "" {
		return r.Content[0].Text
	}
	return r.Completion
}

// Text concatenates all text blocks, or returns the legacy completion.
func (r *Response) Text() string {
	if r.Content == nil {
		return r.Completion
	}
	var sb strings.Builder
	for _, b := range r.Content {
		if b.Type == BlockTypeText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolCall is a tool_use block returned by the model.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"args"`
}

// ToolCalls collects the tool_use blocks in order.
func (r *Response) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range r.Content {
		if b.Type == BlockTypeToolUse {
			calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return calls
}

// ErrorMessage extracts a provider error message from a non-Claude shaped body,
// e.g. {"message": "..."} or {"error": {"message": "..."}}.
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error", "Message"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func fallbackToolID() string {
	return fmt.Sprintf("tool_%d", time.Now().UnixMilli())
}
