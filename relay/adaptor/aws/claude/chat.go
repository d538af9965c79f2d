package claude

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleTool      = "tool"
)

// ChatMessage is one turn of a conversation in the gateway's chat format.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes a callable tool with a JSON schema for its arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

type ChatOptions struct {
	MaxTokens   int
	Temperature *float64
	Tools       []ToolDefinition
}

// ConvertChat turns a conversation into a Claude request. System messages are
// joined into the system prompt, assistant tool calls become tool_use blocks and
// tool messages become tool_result blocks sent by the user.
func ConvertChat(messages []ChatMessage, opts ChatOptions) (*Request, error) {
	var systemParts []string
	converted := make([]Message, 0, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case ChatRoleSystem:
			systemParts = append(systemParts, msg.Content)
		case ChatRoleUser:
			converted = append(converted, Message{Role: RoleUser, Content: TextContent(msg.Content)})
		case ChatRoleAssistant:
			converted = append(converted, Message{Role: RoleAssistant, Content: assistantContent(msg)})
		case ChatRoleTool:
			converted = append(converted, Message{
				Role: RoleUser,
				Content: BlockContent(ContentBlock{
					Type:      BlockTypeToolResult,
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}),
			})
		default:
			return nil, errors.Errorf("unsupported role %q in message %d", msg.Role, i)
		}
	}

	req := &Request{
		AnthropicVersion: AnthropicVersion,
		MaxTokens:        opts.MaxTokens,
		System:           strings.Join(systemParts, "\n\n"),
		Messages:         converted,
		Temperature:      opts.Temperature,
	}

	for _, tool := range opts.Tools {
		req.Tools = append(req.Tools, ConvertTool(tool))
	}

	return req, nil
}

func assistantContent(msg ChatMessage) MessageContent {
	var blocks []ContentBlock
	if msg.Content != "" {
		blocks = append(blocks, ContentBlock{Type: BlockTypeText, Text: msg.Content})
	}

	for _, call := range msg.ToolCalls {
		id := call.ID
		if id == "" {
			id = fallbackToolID()
		}
		input := call.Input
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		blocks = append(blocks, ContentBlock{
			Type:  BlockTypeToolUse,
			ID:    id,
			Name:  call.Name,
			Input: input,
		})
	}

	if len(blocks) == 1 && blocks[0].Type == BlockTypeText {
		return TextContent(blocks[0].Text)
	}
	return BlockContent(blocks...)
}

// ConvertTool keeps only the properties and required list of the tool schema.
func ConvertTool(tool ToolDefinition) Tool {
	schema := InputSchema{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
	}

	if props, ok := tool.Schema["properties"].(map[string]any); ok {
		schema.Properties = props
	}

	switch required := tool.Schema["required"].(type) {
	case []string:
		schema.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	return Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: schema,
	}
}
