package claude

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertChat(t *testing.T) {
	temperature := 0.7
	req, err := ConvertChat([]ChatMessage{
		{Role: ChatRoleSystem, Content: "You are terse."},
		{Role: ChatRoleSystem, Content: "Answer in English."},
		{Role: ChatRoleUser, Content: "Weather in Paris?"},
		{Role: ChatRoleAssistant, Content: "Checking.", ToolCalls: []ToolCall{
			{ID: "toolu_1", Name: "weather", Input: json.RawMessage(`{"city":"Paris"}`)},
		}},
		{Role: ChatRoleTool, ToolCallID: "toolu_1", Content: "18C sunny"},
		{Role: ChatRoleAssistant, Content: "18C and sunny."},
	}, ChatOptions{
		MaxTokens:   4096,
		Temperature: &temperature,
		Tools: []ToolDefinition{{
			Name:        "weather",
			Description: "Current weather",
			Schema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"city": map[string]any{"type": "string"}},
				"required":   []any{"city"},
			},
		}},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"anthropic_version":"bedrock-2023-05-31",
		"max_tokens":4096,
		"system":"You are terse.\n\nAnswer in English.",
		"temperature":0.7,
		"messages":[
			{"role":"user","content":"Weather in Paris?"},
			{"role":"assistant","content":[
				{"type":"text","text":"Checking."},
				{"type":"tool_use","id":"toolu_1","name":"weather","input":{"city":"Paris"}}
			]},
			{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"18C sunny"}]},
			{"role":"assistant","content":"18C and sunny."}
		],
		"tools":[{
			"name":"weather",
			"description":"Current weather",
			"input_schema":{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}
		}]
	}`, string(raw))
}

func TestConvertChatWithoutSystemOrTools(t *testing.T) {
	req, err := ConvertChat([]ChatMessage{{Role: ChatRoleUser, Content: "hi"}}, ChatOptions{MaxTokens: 10})
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"anthropic_version":"bedrock-2023-05-31",
		"max_tokens":10,
		"messages":[{"role":"user","content":"hi"}]
	}`, string(raw))
}

func TestConvertChatToolCallDefaults(t *testing.T) {
	req, err := ConvertChat([]ChatMessage{
		{Role: ChatRoleAssistant, ToolCalls: []ToolCall{{Name: "lookup"}}},
	}, ChatOptions{MaxTokens: 10})
	require.NoError(t, err)

	blocks := req.Messages[0].Content.Blocks()
	require.Len(t, blocks, 1)
	require.Equal(t, BlockTypeToolUse, blocks[0].Type)
	require.NotEmpty(t, blocks[0].ID)
	require.JSONEq(t, `{}`, string(blocks[0].Input))
}

func TestConvertChatRejectsUnknownRole(t *testing.T) {
	_, err := ConvertChat([]ChatMessage{{Role: "function", Content: "x"}}, ChatOptions{})
	require.ErrorContains(t, err, `unsupported role "function"`)
}

func TestConvertToolWithoutSchema(t *testing.T) {
	tool := ConvertTool(ToolDefinition{Name: "noop"})
	raw, err := json.Marshal(tool)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"noop","input_schema":{"type":"object","properties":{},"required":[]}}`, string(raw))

	tool = ConvertTool(ToolDefinition{Name: "typed", Schema: map[string]any{"required": []string{"a"}}})
	require.Equal(t, []string{"a"}, tool.InputSchema.Required)
}
