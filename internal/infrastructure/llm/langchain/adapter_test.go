package langchain

import (
	"context"
	"errors"
	"testing"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func TestChat_ToolCalls(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: "Reading first.",
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "read_range", Arguments: `{"rangeAddress":"A1:B2"}`},
		}},
	}}}}
	a := New(model, nil, logger.NewNop())

	resp, err := a.Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: "sys"},
			{Role: entity.RoleUser, Content: "sum A"},
		},
		Tools:       []entity.ToolDefinition{{Name: "read_range", Description: "Read", Parameters: map[string]any{"type": "object"}}},
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Reading first.", resp.Message.Content)
	assert.Equal(t, []entity.ToolCall{{ID: "call_1", Name: "read_range", Arguments: `{"rangeAddress":"A1:B2"}`}}, resp.Message.ToolCalls)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	require.Len(t, model.opts.Tools, 1)
	assert.Equal(t, "read_range", model.opts.Tools[0].Function.Name)
	assert.InDelta(t, 0.2, model.opts.Temperature, 1e-6)
}

func TestChat_Errors(t *testing.T) {
	a := New(&fakeModel{err: errors.New("boom")}, nil, logger.NewNop())
	_, err := a.Chat(context.Background(), output.ChatRequest{})
	assert.ErrorContains(t, err, "boom")

	a = New(&fakeModel{resp: &llms.ContentResponse{}}, nil, logger.NewNop())
	_, err = a.Chat(context.Background(), output.ChatRequest{})
	assert.EqualError(t, err, "no choices in response")
}

func TestChatStream_SingleChunk(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "All done."}}}}
	a := New(model, nil, logger.NewNop())

	var chunks []output.StreamChunk
	resp, err := a.ChatStream(context.Background(), output.ChatRequest{}, func(c output.StreamChunk) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	assert.Equal(t, "All done.", resp.Message.Content)
	require.Len(t, chunks, 2)
	assert.Equal(t, "All done.", chunks[0].Content)
	assert.True(t, chunks[1].Done)
}

func TestConvertMessages_ToolRoundTrip(t *testing.T) {
	got := convertMessages([]entity.Message{
		{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: "c1", Name: "read_range", Arguments: "{}"}}},
		{Role: entity.RoleTool, ToolCallID: "c1", Name: "read_range", Content: "OK"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, llms.ChatMessageTypeAI, got[0].Role)
	require.Len(t, got[0].Parts, 1)
	call, ok := got[0].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "read_range", call.FunctionCall.Name)

	assert.Equal(t, llms.ChatMessageTypeTool, got[1].Role)
	assert.Equal(t, llms.ToolCallResponse{ToolCallID: "c1", Name: "read_range", Content: "OK"}, got[1].Parts[0])
}

func TestEmbed(t *testing.T) {
	a := New(&fakeModel{}, fakeEmbedder{}, logger.NewNop())
	vec, err := a.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, vec)

	a = New(&fakeModel{}, nil, logger.NewNop())
	_, err = a.Embed(context.Background(), "abc")
	assert.Error(t, err)
}
