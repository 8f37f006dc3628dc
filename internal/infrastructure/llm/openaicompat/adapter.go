// Package openaicompat talks to any OpenAI-compatible chat completions API.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

var (
	_ output.LLMPort      = (*Adapter)(nil)
	_ output.EmbedderPort = (*Adapter)(nil)
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o"
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)

	maxLoggedBody = 4096
)

type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	// Debug logs request and response bodies.
	Debug  bool
	Logger output.LoggerPort
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:         apiKey,
		Model:          DefaultModel,
		EmbeddingModel: DefaultEmbeddingModel,
		BaseURL:        DefaultBaseURL,
	}
}

type Adapter struct {
	client         *openai.Client
	model          string
	embeddingModel string
	logger         output.LoggerPort
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"authorization", redact(req.Header.Get("Authorization")),
		"body", truncate(string(body), maxLoggedBody),
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
		"contentType", resp.Header.Get("Content-Type"),
	)
	return resp, nil
}

func redact(header string) string {
	if header == "" {
		return ""
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if len(token) <= 8 {
		return "Bearer ***"
	}
	return "Bearer " + token[:4] + "***" + token[len(token)-4:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	if cfg.Debug && cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{base: http.DefaultTransport, logger: cfg.Logger},
		}
	}

	return &Adapter{
		client:         openai.NewClientWithConfig(config),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         cfg.Logger,
	}
}

// Client exposes the underlying client for the HTTP proxy endpoints.
func (a *Adapter) Client() *openai.Client {
	return a.client
}

func (a *Adapter) Model() string {
	return a.model
}

func (a *Adapter) request(req output.ChatRequest, stream bool) openai.ChatCompletionRequest {
	r := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Tools:       convertTools(req.Tools),
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if len(r.Tools) > 0 {
		r.ToolChoice = "auto"
	}
	return r
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.request(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &output.ChatResponse{
		Message: convertResponseMessage(resp.Choices[0].Message),
	}, nil
}

func (a *Adapter) ChatStream(ctx context.Context, req output.ChatRequest, onChunk func(output.StreamChunk)) (*output.ChatResponse, error) {
	oaiReq := a.request(req, true)

	if a.logger != nil {
		a.logger.Debug("Creating chat completion stream",
			"model", a.model,
			"messagesCount", len(oaiReq.Messages),
			"toolsCount", len(oaiReq.Tools),
			"temperature", req.Temperature)
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, oaiReq)
	if err != nil {
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}
	defer stream.Close()

	var thinking, text strings.Builder
	calls := newToolCallAssembler()
	chunks := 0
	var finishReason openai.FinishReason

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context canceled: %w", err)
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if a.logger != nil {
				a.logger.Error("Stream recv error", "error", err, "chunks", chunks)
			}
			return nil, fmt.Errorf("stream recv error: %w", err)
		}
		chunks++

		if len(chunk.Choices) == 0 {
			continue
		}
		if fr := chunk.Choices[0].FinishReason; fr != "" {
			finishReason = fr
		}
		delta := chunk.Choices[0].Delta

		thinking.WriteString(delta.ReasoningContent)
		if delta.Content != "" {
			text.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(output.StreamChunk{Content: delta.Content})
			}
		}
		calls.add(delta.ToolCalls)
	}

	// A stream cut off mid-response also ends in io.EOF.
	if finishReason == "" {
		if a.logger != nil {
			a.logger.Error("Stream ended without finish reason", "chunks", chunks, "textLen", text.Len())
		}
		return nil, fmt.Errorf("stream ended without a finish reason after %d chunks", chunks)
	}

	assembled := calls.calls()
	for _, tc := range assembled {
		if tc.Arguments != "" && !json.Valid([]byte(tc.Arguments)) {
			return nil, fmt.Errorf("tool call %s (%s) has malformed arguments", tc.ID, tc.Name)
		}
	}

	msg := entity.Message{Role: entity.RoleAssistant, Content: text.String()}
	if thinking.Len() > 0 {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:     entity.ContentTypeThinking,
			Thinking: thinking.String(),
		})
	}
	if text.Len() > 0 {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type: entity.ContentTypeText,
			Text: text.String(),
		})
	}
	for _, tc := range assembled {
		call := tc
		msg.ToolCalls = append(msg.ToolCalls, tc)
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:    entity.ContentTypeToolUse,
			ToolUse: &call,
		})
	}

	if a.logger != nil {
		a.logger.Debug("Stream completed",
			"chunks", chunks,
			"textLen", text.Len(),
			"thinkingLen", thinking.Len(),
			"toolCallsCount", len(msg.ToolCalls),
			"finishReason", finishReason)
	}

	if onChunk != nil {
		onChunk(output.StreamChunk{ToolCalls: msg.ToolCalls, Done: true})
	}
	return &output.ChatResponse{Message: msg}, nil
}

func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(a.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return resp.Data[0].Embedding, nil
}

// toolCallAssembler joins streamed tool-call fragments by their index.
type toolCallAssembler struct {
	byIndex map[int]*entity.ToolCall
}

func newToolCallAssembler() *toolCallAssembler {
	return &toolCallAssembler{byIndex: make(map[int]*entity.ToolCall)}
}

func (t *toolCallAssembler) add(deltas []openai.ToolCall) {
	for i, tc := range deltas {
		idx := i
		if tc.Index != nil {
			idx = *tc.Index
		}
		existing, ok := t.byIndex[idx]
		if !ok {
			t.byIndex[idx] = &entity.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
			continue
		}
		existing.Arguments += tc.Function.Arguments
		if tc.Function.Name != "" {
			existing.Name = tc.Function.Name
		}
		if tc.ID != "" {
			existing.ID = tc.ID
		}
	}
}

func (t *toolCallAssembler) calls() []entity.ToolCall {
	indices := make([]int, 0, len(t.byIndex))
	for idx := range t.byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]entity.ToolCall, 0, len(indices))
	for _, idx := range indices {
		out = append(out, *t.byIndex[idx])
	}
	return out
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}

		if oaiMsg.Content == "" {
			for _, block := range msg.ContentBlocks {
				if block.Type == entity.ContentTypeText {
					oaiMsg.Content += block.Text
				}
			}
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertResponseMessage(msg openai.ChatCompletionMessage) entity.Message {
	result := entity.Message{
		Role:    entity.MessageRole(msg.Role),
		Content: msg.Content,
	}
	if result.Role == "" {
		result.Role = entity.RoleAssistant
	}

	if msg.ReasoningContent != "" {
		result.ContentBlocks = append(result.ContentBlocks, entity.ContentBlock{
			Type:     entity.ContentTypeThinking,
			Thinking: msg.ReasoningContent,
		})
	}
	if msg.Content != "" {
		result.ContentBlocks = append(result.ContentBlocks, entity.ContentBlock{
			Type: entity.ContentTypeText,
			Text: msg.Content,
		})
	}

	for _, tc := range msg.ToolCalls {
		toolCall := entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
		result.ToolCalls = append(result.ToolCalls, toolCall)
		result.ContentBlocks = append(result.ContentBlocks, entity.ContentBlock{
			Type:    entity.ContentTypeToolUse,
			ToolUse: &toolCall,
		})
	}

	return result
}

