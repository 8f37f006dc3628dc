package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxPreviewLines = 40

var _ output.MutationGate = (*ApprovalGate)(nil)

// ApprovalGate asks a human before every mutation. Value writes are previewed
// as a line diff of the target block.
type ApprovalGate struct {
	confirm  output.ConfirmPort
	workbook output.WorkbookPort
	logger   output.LoggerPort
}

func NewApprovalGate(confirm output.ConfirmPort, workbook output.WorkbookPort, logger output.LoggerPort) *ApprovalGate {
	return &ApprovalGate{confirm: confirm, workbook: workbook, logger: logger}
}

func (g *ApprovalGate) Check(ctx context.Context, name entity.OperationName, args map[string]any) (entity.GateDecision, error) {
	detail := g.preview(ctx, name, args)

	ok, err := g.confirm.Confirm(ctx, fmt.Sprintf("Allow %s?", name), detail)
	if err != nil {
		return entity.GateDecision{}, fmt.Errorf("approval prompt failed: %w", err)
	}
	if !ok {
		return entity.Deny("the user declined " + string(name)), nil
	}
	return entity.Allow(), nil
}

func (g *ApprovalGate) preview(ctx context.Context, name entity.OperationName, args map[string]any) string {
	var startCell string
	switch name {
	case entity.OpWriteToExcel:
		startCell, _ = args["startCell"].(string)
	case entity.OpWriteToSelectedRange:
		sel, err := g.workbook.Selection(ctx)
		if err != nil {
			return argumentSummary(args)
		}
		startCell = strings.SplitN(sel.Address, ":", 2)[0]
		if sel.Sheet != "" {
			startCell = sel.Sheet + "!" + startCell
		}
	default:
		return argumentSummary(args)
	}

	rows, _ := args["values"].([]any)
	after, cols := renderRows(rows)
	if startCell == "" || len(rows) == 0 || cols == 0 {
		return argumentSummary(args)
	}

	current, err := g.workbook.ReadBlock(ctx, startCell, len(rows), cols)
	if err != nil {
		g.logger.Warn("Write preview unavailable", "cell", startCell, "error", err)
		return argumentSummary(args)
	}

	before := make([]any, len(current.Values))
	for i, r := range current.Values {
		before[i] = r
	}
	beforeText, _ := renderRows(before)

	return current.Address + "\n" + LineDiff(beforeText, after)
}

// LineDiff renders a unified-style line diff of before and after.
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var b strings.Builder
	written := 0
	for _, diff := range diffs {
		lines := strings.Split(diff.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			if written == maxPreviewLines {
				b.WriteString("…\n")
				return b.String()
			}
			switch diff.Type {
			case diffmatchpatch.DiffEqual:
				b.WriteString("  ")
			case diffmatchpatch.DiffDelete:
				b.WriteString("- ")
			case diffmatchpatch.DiffInsert:
				b.WriteString("+ ")
			}
			b.WriteString(line)
			b.WriteString("\n")
			written++
		}
	}
	return b.String()
}

func renderRows(rows []any) (string, int) {
	var b strings.Builder
	cols := 0
	for _, r := range rows {
		cells, _ := r.([]any)
		if len(cells) > cols {
			cols = len(cells)
		}
		parts := make([]string, len(cells))
		for i, c := range cells {
			if c != nil {
				parts[i] = fmt.Sprint(c)
			}
		}
		b.WriteString(strings.Join(parts, "\t"))
		b.WriteString("\n")
	}
	return b.String(), cols
}

func argumentSummary(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
