package entity

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange_Transitions(t *testing.T) {
	ex := NewExchange("ex-1")
	require.Equal(t, ExchangeAwaitingModel, ex.Status)

	require.NoError(t, ex.Transition(ExchangeExecutingTool))
	require.NoError(t, ex.Transition(ExchangeAwaitingModel))
	require.NoError(t, ex.Transition(ExchangeDone))
	assert.True(t, ex.Status.Terminal())

	assert.Error(t, ex.Transition(ExchangeAwaitingModel))
}

func TestExchange_ToolCannotFinish(t *testing.T) {
	ex := NewExchange("ex-2")
	require.NoError(t, ex.Transition(ExchangeExecutingTool))

	err := ex.Transition(ExchangeDone)
	assert.EqualError(t, err, "invalid exchange transition executing_tool -> done")
}

func TestToolResult_Content(t *testing.T) {
	assert.Equal(t, "A1:A1", ToolResult{Payload: "A1:A1"}.Content())
	assert.Equal(t, `{"status":"ok"}`, ToolResult{Payload: map[string]string{"status": "ok"}}.Content())
	assert.Equal(t, "OK", ToolResult{}.Content())

	failed := ToolResult{Err: NewToolError(FailureMutationDenied, "read-only session")}
	assert.True(t, failed.IsError())
	assert.Equal(t, "Error: mutation_denied: read-only session", failed.Content())
}

func TestToolResult_ContentTruncated(t *testing.T) {
	r := ToolResult{Payload: strings.Repeat("x", MaxResultContentLen+10)}

	got := r.Content()
	assert.True(t, strings.HasSuffix(got, "... (truncated)"))
	assert.Len(t, got, MaxResultContentLen+len("\n... (truncated)"))
}

func TestToolResult_ContentTruncatedOnRuneBoundary(t *testing.T) {
	// Two-byte runes start at odd offsets, so the byte limit lands mid-rune.
	r := ToolResult{Payload: "x" + strings.Repeat("é", MaxResultContentLen)}

	got := r.Content()
	require.True(t, utf8.ValidString(got))
	body := strings.TrimSuffix(got, "\n... (truncated)")
	assert.Len(t, body, MaxResultContentLen-1)
}

func TestToolResult_Message(t *testing.T) {
	msg := ToolResult{ToolCallID: "call_1", Name: "read_range", Payload: "ok"}.Message()

	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call_1", msg.ToolCallID)
	assert.Empty(t, msg.ToolCalls)
}

func TestMessage_WithSingleToolCall(t *testing.T) {
	first := ToolCall{ID: "a", Name: "read_range"}
	second := ToolCall{ID: "b", Name: "write_to_excel"}
	msg := Message{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{first, second},
		ContentBlocks: []ContentBlock{
			{Type: ContentTypeText, Text: "checking"},
			{Type: ContentTypeToolUse, ToolUse: &first},
			{Type: ContentTypeToolUse, ToolUse: &second},
		},
	}

	got := msg.WithSingleToolCall(first)

	assert.Equal(t, []ToolCall{first}, got.ToolCalls)
	assert.Len(t, got.ContentBlocks, 2)
	assert.Len(t, msg.ToolCalls, 2)
}
