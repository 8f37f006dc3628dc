package exchange

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"excel-agent/internal/application/port/input"
	"excel-agent/internal/application/port/output"
	"excel-agent/internal/application/service"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
	"excel-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	msg   entity.Message
	err   error
	block chan struct{}
}

type scriptedLLM struct {
	mu       sync.Mutex
	steps    []step
	requests []output.ChatRequest
}

func (s *scriptedLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	return s.ChatStream(ctx, req, nil)
}

func (s *scriptedLLM) ChatStream(ctx context.Context, req output.ChatRequest, onChunk func(output.StreamChunk)) (*output.ChatResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return nil, errors.New("script exhausted")
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	if st.block != nil {
		select {
		case <-st.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if st.err != nil {
		return nil, st.err
	}
	if onChunk != nil && st.msg.Content != "" {
		onChunk(output.StreamChunk{Content: st.msg.Content})
	}
	return &output.ChatResponse{Message: st.msg}, nil
}

func (s *scriptedLLM) lastRequest() output.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type fakeWorkbook struct {
	output.WorkbookPort
	cells    map[string]any
	selected string
}

func (f *fakeWorkbook) ActiveWorksheet(context.Context) (string, error) { return "Sheet1", nil }

func (f *fakeWorkbook) WorksheetNames(context.Context) ([]string, error) {
	return []string{"Sheet1", "Budget"}, nil
}

func (f *fakeWorkbook) Selection(context.Context) (*entity.SelectionInfo, error) {
	return &entity.SelectionInfo{Address: f.selected}, nil
}

func (f *fakeWorkbook) Select(_ context.Context, address string) error {
	f.selected = address
	return nil
}

type recordingListener struct {
	deltas  []string
	started []string
	errors  int
}

func (l *recordingListener) ShowIteration(context.Context, int, int) {}
func (l *recordingListener) ShowThinking(context.Context, string) {}

func (l *recordingListener) ShowTextDelta(_ context.Context, delta string) {
	l.deltas = append(l.deltas, delta)
}

func (l *recordingListener) ShowToolStart(_ context.Context, name, _ string) {
	l.started = append(l.started, name)
}

func (l *recordingListener) ShowToolResult(_ context.Context, _, _ string, isError bool) {
	if isError {
		l.errors++
	}
}

type harness struct {
	uc       *UseCase
	llm      *scriptedLLM
	wb       *fakeWorkbook
	conv     *service.Conversation
	executed []string
}

func newHarness(t *testing.T, gate output.MutationGate, cfg Config, steps ...step) *harness {
	t.Helper()
	h := &harness{
		llm:  &scriptedLLM{steps: steps},
		wb:   &fakeWorkbook{cells: map[string]any{}},
		conv: service.NewConversation(),
	}

	ops := []entity.Operation{
		{
			Name:     entity.OpWriteToExcel,
			Schema:   schema.Strict(schema.String("startCell", "").Req(), schema.Array("values", "", schema.Array("", "", schema.Scalar("", ""))).Req()),
			Mutating: true,
			Execute: func(_ context.Context, args map[string]any) (any, error) {
				cell := args["startCell"].(string)
				h.executed = append(h.executed, "write_to_excel")
				h.wb.cells[cell] = args["values"].([]any)[0].([]any)[0]
				return cell + ":" + cell, nil
			},
		},
		{
			Name:   entity.OpReadFromExcel,
			Schema: schema.Strict(schema.String("cellAddress", "").Req()),
			Execute: func(_ context.Context, args map[string]any) (any, error) {
				h.executed = append(h.executed, "read_from_excel")
				return h.wb.cells[args["cellAddress"].(string)], nil
			},
		},
	}
	registry, err := service.NewOperationRegistryFrom(ops)
	require.NoError(t, err)

	log := logger.NewNop()
	dispatcher := service.NewDispatcher(registry, gate, log)
	h.uc = New(h.llm, registry, dispatcher, h.conv, h.wb, nil, log, cfg)
	return h
}

func toolCall(id, name, args string) entity.Message {
	return entity.Message{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func answer(text string) entity.Message {
	return entity.Message{Role: entity.RoleAssistant, Content: text}
}

func TestSend_WriteThenAnswer(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: toolCall("c1", "write_to_excel", `{"startCell":"A1","values":[["Hello"]]}`)},
		step{msg: answer("Wrote Hello to A1.")},
	)
	listener := &recordingListener{}

	res, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "put Hello in A1", Listener: listener})

	require.NoError(t, err)
	assert.Equal(t, "Wrote Hello to A1.", res.FinalAnswer)
	assert.Equal(t, 2, res.Iterations)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, "A1:A1", res.ToolResults[0].Payload)
	assert.Equal(t, "Hello", h.wb.cells["A1"])
	assert.True(t, res.Committed)

	msgs := h.llm.lastRequest().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role)
	assert.Equal(t, entity.RoleTool, msgs[3].Role)
	assert.Equal(t, "c1", msgs[3].ToolCallID)
	assert.Equal(t, "A1:A1", msgs[3].Content)
	assert.NoError(t, service.ValidateTranscript(msgs))

	assert.Equal(t, []string{"write_to_excel"}, listener.started)
	assert.Equal(t, []string{"Wrote Hello to A1."}, listener.deltas)

	history := h.conv.Snapshot()
	require.Len(t, history, 2)
	assert.Equal(t, "put Hello in A1", history[0].Content)
	assert.Equal(t, "Wrote Hello to A1.", history[1].Content)
}

func TestSend_InvalidArgumentsAreFedBack(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: toolCall("c1", "write_to_excel", `{"startCell":"A1"}`)},
		step{msg: toolCall("c2", "write_to_excel", `{"startCell":"A1","values":[["x"]]}`)},
		step{msg: answer("done")},
	)

	res, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "write x"})

	require.NoError(t, err)
	require.Len(t, res.ToolResults, 2)
	assert.Equal(t, entity.FailureInvalidArguments, res.ToolResults[0].Err.Kind)
	assert.Contains(t, res.ToolResults[0].Content(), "values")
	assert.False(t, res.ToolResults[1].IsError())
	assert.Equal(t, []string{"write_to_excel"}, h.executed)
}

func TestSend_OnlyFirstToolCallDispatched(t *testing.T) {
	both := entity.Message{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{
		{ID: "r1", Name: "read_from_excel", Arguments: `{"cellAddress":"A1"}`},
		{ID: "w1", Name: "write_to_excel", Arguments: `{"startCell":"B1","values":[["y"]]}`},
	}}
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: both},
		step{msg: answer("A1 is empty")},
	)

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "check A1 then write"})

	require.NoError(t, err)
	assert.Equal(t, []string{"read_from_excel"}, h.executed)

	msgs := h.llm.lastRequest().Messages
	assistant := msgs[len(msgs)-2]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "r1", assistant.ToolCalls[0].ID)
	assert.NoError(t, service.ValidateTranscript(msgs))
}

func TestSend_MissingToolCallIDIsAssigned(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: toolCall("", "read_from_excel", `{"cellAddress":"A1"}`)},
		step{msg: answer("ok")},
	)

	res, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "read"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ToolResults[0].ToolCallID, "call_"))
	assert.NoError(t, service.ValidateTranscript(h.llm.lastRequest().Messages))
}

func TestSend_DeniedMutation(t *testing.T) {
	h := newHarness(t, service.ReadOnlyGate{}, DefaultConfig(),
		step{msg: toolCall("c1", "write_to_excel", `{"startCell":"A1","values":[["x"]]}`)},
		step{msg: answer("The workbook is read-only.")},
	)
	listener := &recordingListener{}

	res, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "write x", Listener: listener})

	require.NoError(t, err)
	assert.Equal(t, entity.FailureMutationDenied, res.ToolResults[0].Err.Kind)
	assert.Empty(t, h.executed)
	assert.Equal(t, 1, listener.errors)
}

func TestSend_IterationBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	var steps []step
	for i := 0; i < 5; i++ {
		steps = append(steps, step{msg: toolCall("c", "read_from_excel", `{"cellAddress":"A1"}`)})
	}
	h := newHarness(t, nil, cfg, steps...)

	res, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "loop"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, entity.ErrLoopExhausted)
	assert.Len(t, h.executed, 3)
	assert.Len(t, h.llm.requests, 3)
	assert.Equal(t, 0, len(h.conv.Snapshot()))
}

func TestSend_TransportError(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(), step{err: errors.New("connection reset")})

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "hi"})

	assert.ErrorIs(t, err, entity.ErrModelTransport)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 0, len(h.conv.Snapshot()))
}

func TestSend_EmptyResponseIsTransportError(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(), step{msg: entity.Message{Role: entity.RoleAssistant}})

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "hi"})

	assert.ErrorIs(t, err, entity.ErrModelTransport)
}

func TestSend_OneExchangeAtATime(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: answer("first"), block: release},
	)

	done := make(chan error, 1)
	go func() {
		_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "one"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		h.llm.mu.Lock()
		defer h.llm.mu.Unlock()
		return len(h.llm.requests) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "two"})
	assert.ErrorIs(t, err, entity.ErrExchangeInFlight)

	close(release)
	assert.NoError(t, <-done)
}

func TestSend_CancelledExchangeLeavesHistoryUntouched(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: answer("never"), block: make(chan struct{})},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.uc.Send(ctx, input.ExchangeRequest{Text: "hi"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, len(h.conv.Snapshot()))
}

func TestSend_HistoryCarriesAcrossExchanges(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: answer("first answer")},
		step{msg: answer("second answer")},
	)

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "first"})
	require.NoError(t, err)
	_, err = h.uc.Send(context.Background(), input.ExchangeRequest{Text: "second"})
	require.NoError(t, err)

	msgs := h.llm.lastRequest().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "first answer", msgs[2].Content)
	assert.Equal(t, "second", msgs[3].Content)
}

func TestSend_SystemPromptContext(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(), step{msg: answer("ok")})

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{
		Text:          "summarize @budget",
		SelectedRange: "B2:C5",
	})

	require.NoError(t, err)
	system := h.llm.lastRequest().Messages[0].Content
	assert.Contains(t, system, `The active worksheet is "Sheet1".`)
	assert.Contains(t, system, "The user has selected range: B2:C5.")
	assert.Contains(t, system, "for this question: Budget.")
	assert.Equal(t, "B2:C5", h.wb.selected)
}

func TestSend_ToolDefinitionsAdvertised(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(), step{msg: answer("ok")})

	_, err := h.uc.Send(context.Background(), input.ExchangeRequest{Text: "hi"})

	require.NoError(t, err)
	tools := h.llm.lastRequest().Tools
	require.Len(t, tools, 2)
	assert.Equal(t, "write_to_excel", tools[0].Name)
}

type mislabelingDispatcher struct{ calls int }

func (d *mislabelingDispatcher) Dispatch(_ context.Context, tc entity.ToolCall) entity.ToolResult {
	d.calls++
	return entity.ToolResult{ToolCallID: "not-" + tc.ID, Name: tc.Name, Payload: "ok"}
}

func TestSend_InconsistentTranscriptFails(t *testing.T) {
	h := newHarness(t, nil, DefaultConfig(),
		step{msg: toolCall("c1", "read_from_excel", `{"cellAddress":"A1"}`)},
		step{msg: answer("unreachable")},
	)
	registry, err := service.NewOperationRegistryFrom(nil)
	require.NoError(t, err)
	d := &mislabelingDispatcher{}
	uc := New(h.llm, registry, d, h.conv, h.wb, nil, logger.NewNop(), DefaultConfig())

	res, err := uc.Send(context.Background(), input.ExchangeRequest{Text: "read A1"})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent transcript")
	assert.Equal(t, 1, d.calls)
	assert.Len(t, h.llm.requests, 1)
	assert.Empty(t, h.conv.Snapshot())
}
