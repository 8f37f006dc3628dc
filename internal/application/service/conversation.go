package service

import (
	"fmt"
	"sync"

	"excel-agent/internal/domain/entity"
)

// Conversation is the append-only history shared across exchanges.
type Conversation struct {
	mu       sync.Mutex
	messages []entity.Message
	epoch    uint64
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Snapshot returns a deep copy of the committed history.
func (c *Conversation) Snapshot() []entity.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return entity.CloneMessages(c.messages)
}

// Reset clears history and invalidates any open scope.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.epoch++
}

// Begin opens a scope for a new exchange. Any earlier open scope can no longer commit.
func (c *Conversation) Begin() *ExchangeScope {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return &ExchangeScope{
		conv:  c,
		epoch: c.epoch,
		base:  entity.CloneMessages(c.messages),
	}
}

// ExchangeScope buffers the transcript of one exchange.
type ExchangeScope struct {
	conv      *Conversation
	epoch     uint64
	base      []entity.Message
	pending   []entity.Message
	abandoned bool
}

func (s *ExchangeScope) Append(msgs ...entity.Message) {
	for _, m := range msgs {
		s.pending = append(s.pending, m.Clone())
	}
}

// Messages returns history at Begin plus everything appended since.
func (s *ExchangeScope) Messages() []entity.Message {
	out := make([]entity.Message, 0, len(s.base)+len(s.pending))
	out = append(out, entity.CloneMessages(s.base)...)
	out = append(out, entity.CloneMessages(s.pending)...)
	return out
}

// Commit appends keep to the conversation if the scope is still current.
func (s *ExchangeScope) Commit(keep ...entity.Message) bool {
	c := s.conv
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.abandoned || s.epoch != c.epoch {
		return false
	}
	c.messages = append(c.messages, entity.CloneMessages(keep)...)
	s.abandoned = true
	return true
}

func (s *ExchangeScope) Abandon() {
	c := s.conv
	c.mu.Lock()
	defer c.mu.Unlock()
	s.abandoned = true
}

// ValidateTranscript checks that every tool message answers exactly one
// earlier assistant tool call and that tool messages carry no tool calls.
func ValidateTranscript(messages []entity.Message) error {
	open := make(map[string]bool)
	for i, m := range messages {
		switch m.Role {
		case entity.RoleAssistant:
			for _, tc := range m.ToolCalls {
				if tc.ID == "" {
					return fmt.Errorf("message %d: assistant tool call without id", i)
				}
				open[tc.ID] = true
			}
		case entity.RoleTool:
			if len(m.ToolCalls) > 0 {
				return fmt.Errorf("message %d: tool message carries tool calls", i)
			}
			if !open[m.ToolCallID] {
				return fmt.Errorf("message %d: tool result %q has no pending call", i, m.ToolCallID)
			}
			delete(open, m.ToolCallID)
		}
	}
	return nil
}
