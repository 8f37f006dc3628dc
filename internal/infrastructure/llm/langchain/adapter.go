// Package langchain adapts a langchaingo model to the LLM port.
package langchain

import (
	"context"
	"fmt"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	_ output.LLMPort      = (*Adapter)(nil)
	_ output.EmbedderPort = (*Adapter)(nil)
)

type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
}

type Adapter struct {
	model    llms.Model
	embedder embeddings.Embedder
	logger   output.LoggerPort
}

// NewOpenAI builds an adapter on langchaingo's OpenAI provider. The same
// client serves embeddings.
func NewOpenAI(cfg Config, logger output.LoggerPort) (*Adapter, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.EmbeddingModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create langchain embedder: %w", err)
	}
	return New(llm, embedder, logger), nil
}

// New wraps model. embedder may be nil, in which case Embed fails.
func New(model llms.Model, embedder embeddings.Embedder, logger output.LoggerPort) *Adapter {
	return &Adapter{model: model, embedder: embedder, logger: logger}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(convertTools(req.Tools)))
	}

	resp, err := a.model.GenerateContent(ctx, convertMessages(req.Messages), opts...)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	a.logger.Debug("Langchain response received",
		"choices", len(resp.Choices),
		"toolCallsCount", len(resp.Choices[0].ToolCalls),
		"stopReason", resp.Choices[0].StopReason)

	return &output.ChatResponse{Message: convertChoice(resp.Choices[0])}, nil
}

// ChatStream generates the whole reply and reports its text as one chunk.
// Streamed tool-call fragments are not exposed uniformly across langchaingo
// providers, so only completed replies are forwarded.
func (a *Adapter) ChatStream(ctx context.Context, req output.ChatRequest, onChunk func(output.StreamChunk)) (*output.ChatResponse, error) {
	resp, err := a.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if onChunk != nil {
		if resp.Message.Content != "" {
			onChunk(output.StreamChunk{Content: resp.Message.Content})
		}
		onChunk(output.StreamChunk{ToolCalls: resp.Message.ToolCalls, Done: true})
	}
	return resp, nil
}

func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if a.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	vec, err := a.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

func convertMessages(messages []entity.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))

		case entity.RoleUser:
			result = append(result, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))

		case entity.RoleTool:
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})

		default:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			result = append(result, mc)
		}
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []llms.Tool {
	result := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertChoice(choice *llms.ContentChoice) entity.Message {
	msg := entity.Message{Role: entity.RoleAssistant, Content: choice.Content}
	if choice.Content != "" {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type: entity.ContentTypeText,
			Text: choice.Content,
		})
	}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		call := entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		}
		msg.ToolCalls = append(msg.ToolCalls, call)
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:    entity.ContentTypeToolUse,
			ToolUse: &call,
		})
	}
	return msg
}
