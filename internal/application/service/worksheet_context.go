package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
)

const maxEmbeddedSheetChars = 24000

// ExtractMentions returns the sheets named with @Name in text, matched
// case-insensitively, in order of first mention, without duplicates. Names may
// contain spaces or punctuation; the longest matching name wins.
func ExtractMentions(text string, sheets []string) []string {
	names := append([]string(nil), sheets...)
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	var result []string
	seen := make(map[string]bool)
	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		rest := text[i+1:]
		for _, name := range names {
			if name == "" || len(rest) < len(name) || !strings.EqualFold(rest[:len(name)], name) {
				continue
			}
			if r, _ := utf8.DecodeRuneInString(rest[len(name):]); isNameRune(r) {
				continue
			}
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
			i += len(name)
			break
		}
	}
	return result
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// WorksheetContext embeds worksheet contents and ranks them against a request.
type WorksheetContext struct {
	workbook output.WorkbookPort
	embedder output.EmbedderPort
	cache    *EmbeddingCache
	logger   output.LoggerPort
}

func NewWorksheetContext(workbook output.WorkbookPort, embedder output.EmbedderPort, cache *EmbeddingCache, logger output.LoggerPort) *WorksheetContext {
	if cache == nil {
		cache = NewEmbeddingCache(DefaultEmbeddingTTL, nil)
	}
	return &WorksheetContext{
		workbook: workbook,
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

func (w *WorksheetContext) Enabled() bool {
	return w != nil && w.embedder != nil
}

func (w *WorksheetContext) Cache() *EmbeddingCache {
	return w.cache
}

// EmbedWorksheet returns the cached vector for sheet, computing it if needed.
func (w *WorksheetContext) EmbedWorksheet(ctx context.Context, sheet string) ([]float32, error) {
	if !w.Enabled() {
		return nil, fmt.Errorf("embeddings are not configured")
	}
	if v, ok := w.cache.Get(cacheKey(sheet)); ok {
		return v, nil
	}

	content, err := w.workbook.SheetContent(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", sheet, err)
	}
	if len(content) > maxEmbeddedSheetChars {
		content = content[:maxEmbeddedSheetChars]
	}

	v, err := w.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed worksheet %s: %w", sheet, err)
	}
	w.cache.Put(cacheKey(sheet), v)
	w.logger.Debug("Worksheet embedded", "sheet", sheet, "dims", len(v))
	return v, nil
}

// Refresh drops the cached vector of sheet and embeds it again.
func (w *WorksheetContext) Refresh(ctx context.Context, sheet string) ([]float32, error) {
	w.cache.Invalidate(cacheKey(sheet))
	return w.EmbedWorksheet(ctx, sheet)
}

// EmbedAll embeds every worksheet. Failures are logged and skipped.
func (w *WorksheetContext) EmbedAll(ctx context.Context) (int, error) {
	names, err := w.workbook.WorksheetNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list worksheets: %w", err)
	}

	embedded := 0
	for _, name := range names {
		if _, err := w.Refresh(ctx, name); err != nil {
			w.logger.Warn("Skipping worksheet embedding", "sheet", name, "error", err)
			continue
		}
		embedded++
	}
	return embedded, nil
}

// Rank scores sheets against query, most relevant first. Sheets that fail to
// embed are left out.
func (w *WorksheetContext) Rank(ctx context.Context, query string, sheets []string) ([]entity.SheetRelevance, error) {
	if !w.Enabled() || len(sheets) == 0 {
		return nil, nil
	}

	q, err := w.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	result := make([]entity.SheetRelevance, 0, len(sheets))
	for _, sheet := range sheets {
		v, err := w.EmbedWorksheet(ctx, sheet)
		if err != nil {
			w.logger.Warn("Worksheet left out of ranking", "sheet", sheet, "error", err)
			continue
		}
		result = append(result, entity.SheetRelevance{Sheet: sheet, Score: CosineSimilarity(q, v)})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result, nil
}

func cacheKey(sheet string) string {
	return "sheet:" + sheet
}
