package output

import (
	"context"

	"excel-agent/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatStream reports text deltas through onChunk as they arrive. Tool calls are
	// only reported once fully assembled, in the final chunk.
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	Temperature float32
}

type ChatResponse struct {
	Message entity.Message
}

type StreamChunk struct {
	Content   string
	ToolCalls []entity.ToolCall
	Done      bool
}

type EmbedderPort interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
