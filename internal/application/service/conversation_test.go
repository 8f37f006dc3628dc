package service

import (
	"testing"

	"excel-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_CommitAppends(t *testing.T) {
	c := NewConversation()
	scope := c.Begin()

	user := entity.Message{Role: entity.RoleUser, Content: "hi"}
	answer := entity.Message{Role: entity.RoleAssistant, Content: "hello"}
	scope.Append(user)
	scope.Append(answer)

	require.True(t, scope.Commit(user, answer))
	assert.Equal(t, []entity.Message{user, answer}, c.Snapshot())

	assert.False(t, scope.Commit(user), "a scope commits once")
}

func TestConversation_SupersededScopeDiscarded(t *testing.T) {
	c := NewConversation()
	old := c.Begin()
	old.Append(entity.Message{Role: entity.RoleUser, Content: "first"})

	current := c.Begin()
	current.Append(entity.Message{Role: entity.RoleUser, Content: "second"})
	require.True(t, current.Commit(current.Messages()...))

	assert.False(t, old.Commit(old.Messages()...))
	require.Equal(t, 1, len(c.Snapshot()))
	assert.Equal(t, "second", c.Snapshot()[0].Content)
}

func TestConversation_AbandonAndReset(t *testing.T) {
	c := NewConversation()
	s := c.Begin()
	s.Abandon()
	assert.False(t, s.Commit(entity.Message{Role: entity.RoleUser, Content: "late"}))
	assert.Equal(t, 0, len(c.Snapshot()))

	s = c.Begin()
	c.Reset()
	assert.False(t, s.Commit(entity.Message{Role: entity.RoleUser, Content: "late"}))
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	c := NewConversation()
	s := c.Begin()
	msg := entity.Message{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: "1", Name: "read_range"}}}
	require.True(t, s.Commit(msg))

	snap := c.Snapshot()
	snap[0].ToolCalls[0].Name = "changed"

	assert.Equal(t, "read_range", c.Snapshot()[0].ToolCalls[0].Name)
}

func TestExchangeScope_MessagesIncludeHistory(t *testing.T) {
	c := NewConversation()
	first := c.Begin()
	require.True(t, first.Commit(entity.Message{Role: entity.RoleUser, Content: "earlier"}))

	s := c.Begin()
	s.Append(entity.Message{Role: entity.RoleUser, Content: "now"})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "earlier", msgs[0].Content)
	assert.Equal(t, "now", msgs[1].Content)
}

func TestValidateTranscript(t *testing.T) {
	valid := []entity.Message{
		{Role: entity.RoleUser, Content: "write"},
		{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: "c1", Name: "write_to_excel"}}},
		{Role: entity.RoleTool, ToolCallID: "c1", Content: "A1:A1"},
		{Role: entity.RoleAssistant, Content: "done"},
	}
	assert.NoError(t, ValidateTranscript(valid))

	orphan := []entity.Message{
		{Role: entity.RoleUser, Content: "write"},
		{Role: entity.RoleTool, ToolCallID: "c1", Content: "A1:A1"},
	}
	assert.Error(t, ValidateTranscript(orphan))

	answeredTwice := append(append([]entity.Message{}, valid[:3]...), entity.Message{Role: entity.RoleTool, ToolCallID: "c1"})
	assert.Error(t, ValidateTranscript(answeredTwice))

	withCalls := []entity.Message{
		{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: "c1"}}},
		{Role: entity.RoleTool, ToolCallID: "c1", ToolCalls: []entity.ToolCall{{ID: "c2"}}},
	}
	assert.Error(t, ValidateTranscript(withCalls))
}
