package userinteraction

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"excel-agent/internal/application/port/input"
	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/infrastructure/logger"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type scriptedPrompt struct {
	lines   []string
	history []string
}

func (p *scriptedPrompt) Prompt(string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompt) AppendHistory(item string) { p.history = append(p.history, item) }
func (p *scriptedPrompt) Close() error              { return nil }

type fakeRunner struct {
	requests []input.ExchangeRequest
	answer   string
	err      error
}

func (r *fakeRunner) Send(ctx context.Context, req input.ExchangeRequest) (*input.ExchangeResult, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	req.Listener.ShowTextDelta(ctx, r.answer)
	return &input.ExchangeResult{FinalAnswer: r.answer, Committed: true}, nil
}

type stubWorkbook struct {
	output.WorkbookPort
	selected string
	saved    bool
}

func (w *stubWorkbook) WorksheetNames(context.Context) ([]string, error) {
	return []string{"Sales", "Costs"}, nil
}

func (w *stubWorkbook) ActiveWorksheet(context.Context) (string, error) { return "Costs", nil }

func (w *stubWorkbook) Select(_ context.Context, address string) error {
	if address == "Nope!A1" {
		return errors.New(`worksheet "Nope" does not exist`)
	}
	w.selected = address
	return nil
}

func (w *stubWorkbook) Selection(context.Context) (*entity.SelectionInfo, error) {
	return &entity.SelectionInfo{Sheet: "Sales", Address: "A1:B2", RowCount: 2, ColumnCount: 2}, nil
}

func (w *stubWorkbook) Save() error {
	w.saved = true
	return nil
}

type countingResetter struct{ n int }

func (r *countingResetter) Reset() { r.n++ }

func newTestREPL(lines ...string) (*REPL, *bytes.Buffer, *fakeRunner, *stubWorkbook, *countingResetter) {
	out := &bytes.Buffer{}
	console := NewConsole(out, &scriptedPrompt{lines: lines})
	runner := &fakeRunner{answer: "Done."}
	wb := &stubWorkbook{}
	reset := &countingResetter{}
	return NewREPL(console, runner, wb, nil, reset, logger.NewNop()), out, runner, wb, reset
}

func TestConsole_ToolProgress(t *testing.T) {
	out := &bytes.Buffer{}
	c := NewConsole(out, &scriptedPrompt{})
	ctx := context.Background()

	c.ShowIteration(ctx, 2, 25)
	c.ShowTextDelta(ctx, "Let me look")
	c.ShowToolStart(ctx, "read_range", `{"rangeAddress":"A1:B2"}`)
	c.ShowToolResult(ctx, "read_range", "first\nsecond", false)
	c.ShowToolResult(ctx, "write_to_excel", "Error: invalid_arguments: bad", true)

	got := out.String()
	assert.Contains(t, got, "Iteration 2/25")
	assert.Contains(t, got, "Let me look\n")
	assert.Contains(t, got, "Read range")
	assert.Contains(t, got, "rangeAddress=A1:B2")
	assert.Contains(t, got, "✓ first …")
	assert.Contains(t, got, "❌ Error: invalid_arguments: bad")
}

func TestConsole_ShowAnswer(t *testing.T) {
	out := &bytes.Buffer{}
	c := NewConsole(out, &scriptedPrompt{})

	c.ShowAnswer("Total is 42.")
	assert.Equal(t, "\nTotal is 42.\n", out.String())

	out.Reset()
	c.ShowTextDelta(context.Background(), "Streamed.")
	c.ShowAnswer("Streamed.")
	assert.Equal(t, "Streamed.\n", out.String())
}

func TestConsole_Confirm(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y", true},
		{" YES ", true},
		{"n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			out := &bytes.Buffer{}
			c := NewConsole(out, &scriptedPrompt{lines: []string{tt.answer}})

			ok, err := c.Confirm(context.Background(), "Allow write_to_excel?", "+ 1\t2")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "Allow write_to_excel?")
			assert.Contains(t, out.String(), "+ 1\t2")
		})
	}

	c := NewConsole(&bytes.Buffer{}, &scriptedPrompt{})
	_, err := c.Confirm(context.Background(), "Allow?", "")
	assert.ErrorIs(t, err, io.EOF)
}

func TestFormatToolArguments(t *testing.T) {
	assert.Equal(t, "startCell=A1 values=[2]", formatToolArguments(`{"values":[[1],[2]],"startCell":"A1"}`))
	assert.Empty(t, formatToolArguments(`not json`))
}

func TestREPL_SendsRequests(t *testing.T) {
	r, out, runner, _, _ := newTestREPL("Sum column B", "/quit", "never read")

	require.NoError(t, r.Run(context.Background()))

	require.Len(t, runner.requests, 1)
	assert.Equal(t, "Sum column B", runner.requests[0].Text)
	assert.NotNil(t, runner.requests[0].Listener)
	assert.Contains(t, out.String(), "Done.")
}

func TestREPL_ExchangeErrorKeepsSession(t *testing.T) {
	r, out, runner, _, _ := newTestREPL("first", "second")
	runner.err = entity.ErrModelTransport

	require.NoError(t, r.Run(context.Background()))

	assert.Len(t, runner.requests, 2)
	assert.Contains(t, out.String(), "Error: model transport")
}

func TestREPL_Commands(t *testing.T) {
	ctx := context.Background()
	r, out, runner, wb, reset := newTestREPL()

	quit, err := r.Handle(ctx, "/sheets")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "  Sales\n")
	assert.Contains(t, out.String(), "* Costs\n")

	_, err = r.Handle(ctx, "/select Sales!A1:B2")
	require.NoError(t, err)
	assert.Equal(t, "Sales!A1:B2", wb.selected)
	assert.Contains(t, out.String(), "Selected Sales!A1:B2 (2×2)")

	_, err = r.Handle(ctx, "/select Nope!A1")
	assert.Error(t, err)

	_, err = r.Handle(ctx, "/reset")
	require.NoError(t, err)
	assert.Equal(t, 1, reset.n)

	_, err = r.Handle(ctx, "/save")
	require.NoError(t, err)
	assert.True(t, wb.saved)

	_, err = r.Handle(ctx, "/embed Sales")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Embeddings are not configured.")

	_, err = r.Handle(ctx, "/frobnicate")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Unknown command /frobnicate")

	quit, err = r.Handle(ctx, "/exit")
	require.NoError(t, err)
	assert.True(t, quit)

	assert.Empty(t, runner.requests)
}
