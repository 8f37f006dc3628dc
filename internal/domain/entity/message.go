package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeThinking ContentType = "thinking"
	ContentTypeToolUse  ContentType = "tool_use"
)

type ContentBlock struct {
	Type     ContentType
	Text     string
	Thinking string
	ToolUse  *ToolCall
}

type Message struct {
	Role          MessageRole
	Content       string
	ContentBlocks []ContentBlock
	ToolCalls     []ToolCall
	ToolCallID    string
	Name          string
}

// ToolCall is a model's request to invoke an operation. Arguments is the raw,
// unvalidated JSON text.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Thinking returns the concatenated reasoning blocks of the message.
func (m Message) Thinking() string {
	var out string
	for _, b := range m.ContentBlocks {
		if b.Type == ContentTypeThinking {
			out += b.Thinking
		}
	}
	return out
}

// WithSingleToolCall returns a copy of m whose only tool call is tc.
func (m Message) WithSingleToolCall(tc ToolCall) Message {
	out := m.Clone()
	out.ToolCalls = []ToolCall{tc}

	blocks := make([]ContentBlock, 0, len(out.ContentBlocks))
	for _, b := range out.ContentBlocks {
		if b.Type != ContentTypeToolUse {
			blocks = append(blocks, b)
		}
	}
	call := tc
	out.ContentBlocks = append(blocks, ContentBlock{Type: ContentTypeToolUse, ToolUse: &call})
	return out
}

func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.ContentBlocks != nil {
		out.ContentBlocks = make([]ContentBlock, len(m.ContentBlocks))
		for i, b := range m.ContentBlocks {
			if b.ToolUse != nil {
				call := *b.ToolUse
				b.ToolUse = &call
			}
			out.ContentBlocks[i] = b
		}
	}
	return out
}

func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}
