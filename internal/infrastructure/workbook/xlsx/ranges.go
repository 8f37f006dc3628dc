package xlsx

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColumnWidth = 8.43
	maxColumnWidth = 255
	lineHeight     = 15.0
)

func (a *WorkbookAdapter) MergeCells(_ context.Context, address string, across bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}
	if across {
		for row := r.r1; row <= r.r2; row++ {
			if err := a.file.MergeCell(r.sheet, cellName(r.c1, row), cellName(r.c2, row)); err != nil {
				return "", fmt.Errorf("merge row %d: %w", row, err)
			}
		}
	} else if err := a.file.MergeCell(r.sheet, r.start(), r.end()); err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}
	return fmt.Sprintf("Merged cells in range %s", strings.TrimSpace(address)), nil
}

func (a *WorkbookAdapter) UnmergeCells(_ context.Context, address string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}
	if err := a.file.UnmergeCell(r.sheet, r.start(), r.end()); err != nil {
		return "", fmt.Errorf("unmerge: %w", err)
	}
	return fmt.Sprintf("Unmerged cells in range %s", strings.TrimSpace(address)), nil
}

// AutofitColumns sizes each column to its longest displayed value in the range.
func (a *WorkbookAdapter) AutofitColumns(_ context.Context, address string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}
	last := minInt(r.r2, maxInt(a.usedRows(r.sheet), r.r1))

	for col := r.c1; col <= r.c2; col++ {
		longest := 0
		for row := r.r1; row <= last; row++ {
			s, err := a.file.GetCellValue(r.sheet, cellName(col, row))
			if err != nil {
				return "", err
			}
			for _, line := range strings.Split(s, "\n") {
				longest = maxInt(longest, utf8.RuneCountInString(line))
			}
		}
		width := float64(longest)*1.1 + 2
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return "", err
		}
		if err := a.file.SetColWidth(r.sheet, name, name, width); err != nil {
			return "", fmt.Errorf("set width of %s: %w", name, err)
		}
	}
	return fmt.Sprintf("Auto-fitted columns in range %s", strings.TrimSpace(address)), nil
}

// AutofitRows sizes each row to the tallest multi-line value in the range.
func (a *WorkbookAdapter) AutofitRows(_ context.Context, address string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}
	for row := r.r1; row <= r.r2; row++ {
		lines := 1
		for col := r.c1; col <= r.c2; col++ {
			s, err := a.file.GetCellValue(r.sheet, cellName(col, row))
			if err != nil {
				return "", err
			}
			lines = maxInt(lines, strings.Count(s, "\n")+1)
		}
		if err := a.file.SetRowHeight(r.sheet, row, lineHeight*float64(lines)); err != nil {
			return "", fmt.Errorf("set height of row %d: %w", row, err)
		}
	}
	return fmt.Sprintf("Auto-fitted rows in range %s", strings.TrimSpace(address)), nil
}
