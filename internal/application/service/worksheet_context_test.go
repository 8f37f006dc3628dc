package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestEmbeddingCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewEmbeddingCache(30*time.Minute, clock.Now)

	c.Put("sheet:Data", []float32{1, 2})
	v, ok := c.Get("sheet:Data")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)

	clock.t = clock.t.Add(29 * time.Minute)
	_, ok = c.Get("sheet:Data")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Minute)
	_, ok = c.Get("sheet:Data")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEmbeddingCache_PurgeAndInvalidate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewEmbeddingCache(time.Minute, clock.Now)

	c.Put("old", []float32{1})
	clock.t = clock.t.Add(2 * time.Minute)
	c.Put("fresh", []float32{2})
	c.Put("gone", []float32{3})
	c.Invalidate("gone")

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestExtractMentions(t *testing.T) {
	sheets := []string{"Sales", "Budget", "Q1_Data"}

	got := ExtractMentions("compare @sales with @BUDGET and @sales again, ignore @Missing and @q1_data", sheets)

	assert.Equal(t, []string{"Sales", "Budget", "Q1_Data"}, got)
	assert.Empty(t, ExtractMentions("no mentions here", sheets))
	assert.Empty(t, ExtractMentions("@Salesforce is not a sheet", sheets))
}

func TestExtractMentions_NamesWithSpacesAndHyphens(t *testing.T) {
	sheets := []string{"Q1", "Q1 Sales", "2024-Data", "Sheet 1"}

	got := ExtractMentions("move @q1 sales totals into @2024-data, then check @Q1 and @sheet 1.", sheets)

	assert.Equal(t, []string{"Q1 Sales", "2024-Data", "Q1", "Sheet 1"}, got)
}

type fakeSheets struct {
	output.WorkbookPort
	content map[string]string
	reads   int
}

func (f *fakeSheets) SheetContent(_ context.Context, sheet string) (string, error) {
	f.reads++
	c, ok := f.content[sheet]
	if !ok {
		return "", errors.New("no such sheet")
	}
	return c, nil
}

func (f *fakeSheets) WorksheetNames(context.Context) ([]string, error) {
	return []string{"Sales", "Budget", "Broken"}, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("embedding failed")
	}
	return v, nil
}

func newTestContext() (*WorksheetContext, *fakeSheets, *fakeEmbedder) {
	sheets := &fakeSheets{content: map[string]string{
		"Sales":  "region\tamount",
		"Budget": "item\tcost",
		"Broken": "cannot embed",
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"region\tamount":       {1, 0},
		"item\tcost":           {0, 1},
		"how much did we sell": {0.9, 0.1},
	}}
	return NewWorksheetContext(sheets, embedder, nil, logger.NewNop()), sheets, embedder
}

func TestWorksheetContext_EmbedUsesCache(t *testing.T) {
	w, sheets, embedder := newTestContext()
	ctx := context.Background()

	_, err := w.EmbedWorksheet(ctx, "Sales")
	require.NoError(t, err)
	_, err = w.EmbedWorksheet(ctx, "Sales")
	require.NoError(t, err)

	assert.Equal(t, 1, sheets.reads)
	assert.Equal(t, 1, embedder.calls)

	_, err = w.Refresh(ctx, "Sales")
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls)
}

func TestWorksheetContext_EmbedAllSkipsFailures(t *testing.T) {
	w, _, _ := newTestContext()

	n, err := w.EmbedAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWorksheetContext_Rank(t *testing.T) {
	w, _, _ := newTestContext()

	ranked, err := w.Rank(context.Background(), "how much did we sell", []string{"Budget", "Broken", "Sales"})

	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Sales", ranked[0].Sheet)
	assert.Equal(t, "Budget", ranked[1].Sheet)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestWorksheetContext_Disabled(t *testing.T) {
	w := NewWorksheetContext(&fakeSheets{}, nil, nil, logger.NewNop())

	assert.False(t, w.Enabled())
	ranked, err := w.Rank(context.Background(), "q", []string{"Sales"})
	assert.NoError(t, err)
	assert.Nil(t, ranked)

	_, err = w.EmbedWorksheet(context.Background(), "Sales")
	assert.Error(t, err)
}
