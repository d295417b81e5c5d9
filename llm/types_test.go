package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTextContent(t *testing.T) {
	t.Parallel()

	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			TextBlock("Hello, "),
			ToolUseBlock("toolu_1", "read_file", json.RawMessage(`{"path":"a.go"}`)),
			TextBlock("world"),
		},
	}

	assert.Equal(t, "Hello, world", msg.TextContent())
}

func TestMessageToolUsesOrdered(t *testing.T) {
	t.Parallel()

	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			ToolUseBlock("toolu_1", "read_file", json.RawMessage(`{}`)),
			TextBlock("thinking"),
			ToolUseBlock("toolu_2", "write_file", json.RawMessage(`{}`)),
		},
	}

	uses := msg.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "toolu_1", uses[0].ID)
	assert.Equal(t, "toolu_2", uses[1].ID)
}

func TestConstructorsSetKind(t *testing.T) {
	t.Parallel()

	text := TextBlock("x")
	assert.Equal(t, BlockText, text.Kind)
	assert.Nil(t, text.ToolUse)
	assert.Nil(t, text.ToolResult)

	use := ToolUseBlock("id", "name", json.RawMessage(`{}`))
	assert.Equal(t, BlockToolUse, use.Kind)
	require.NotNil(t, use.ToolUse)
	assert.Equal(t, "name", use.ToolUse.Name)

	result := ToolResultBlock("id", "output", true)
	assert.Equal(t, BlockToolResult, result.Kind)
	require.NotNil(t, result.ToolResult)
	assert.Equal(t, "id", result.ToolResult.ToolUseID)
	assert.True(t, result.ToolResult.IsError)
}

func TestToolResultMessageRole(t *testing.T) {
	t.Parallel()

	msg := ToolResultMessage("toolu_9", "done", false)
	assert.Equal(t, RoleUser, msg.Role)
	require.Len(t, msg.Content, 1)
	assert.Equal(t, BlockToolResult, msg.Content[0].Kind)
	assert.Equal(t, "toolu_9", msg.Content[0].ToolResult.ToolUseID)
}

func TestResponseHelpers(t *testing.T) {
	t.Parallel()

	resp := Response{
		Message: Message{
			Role: RoleAssistant,
			Content: []ContentBlock{
				TextBlock("before "),
				ToolUseBlock("toolu_1", "list_files", json.RawMessage(`{"path":"."}`)),
				TextBlock("after"),
			},
		},
		StopReason: StopToolUse,
	}

	assert.Equal(t, "before after", resp.Text())
	assert.Len(t, resp.ToolUses(), 1)
}

func TestUsageAdd(t *testing.T) {
	t.Parallel()

	total := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}.
		Add(Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5})

	assert.Equal(t, Usage{InputTokens: 13, OutputTokens: 7, TotalTokens: 20}, total)
}
