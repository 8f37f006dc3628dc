package xlsx

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"excel-agent/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

// cellValue converts a displayed cell string into a JSON-friendly value.
func cellValue(s string) any {
	if s == "" {
		return nil
	}
	switch s {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func (a *WorkbookAdapter) readValues(r cellRange) ([][]any, error) {
	if r.cells() > maxReadCells {
		return nil, fmt.Errorf("range %s has %d cells; read at most %d cells at a time", r.address(), r.cells(), maxReadCells)
	}

	values := make([][]any, 0, r.rows())
	for row := r.r1; row <= r.r2; row++ {
		line := make([]any, 0, r.cols())
		for col := r.c1; col <= r.c2; col++ {
			s, err := a.file.GetCellValue(r.sheet, cellName(col, row))
			if err != nil {
				return nil, err
			}
			line = append(line, cellValue(s))
		}
		values = append(values, line)
	}
	return values, nil
}

func (a *WorkbookAdapter) setValue(sheet, cell string, v any) error {
	switch val := v.(type) {
	case nil:
		return a.file.SetCellValue(sheet, cell, nil)
	case string:
		if strings.HasPrefix(val, "=") && len(val) > 1 {
			return a.file.SetCellFormula(sheet, cell, strings.TrimPrefix(val, "="))
		}
		return a.file.SetCellStr(sheet, cell, val)
	case float64:
		return a.file.SetCellFloat(sheet, cell, val, -1, 64)
	default:
		return a.file.SetCellValue(sheet, cell, val)
	}
}

func (a *WorkbookAdapter) writeBlock(sheet string, col, row int, values [][]any) (cellRange, error) {
	width := 0
	for _, line := range values {
		width = maxInt(width, len(line))
	}
	if len(values) == 0 || width == 0 {
		return cellRange{}, fmt.Errorf("no values to write")
	}

	for i, line := range values {
		for j, v := range line {
			if err := a.setValue(sheet, cellName(col+j, row+i), v); err != nil {
				return cellRange{}, fmt.Errorf("write %s: %w", cellName(col+j, row+i), err)
			}
		}
	}
	return cellRange{sheet: sheet, c1: col, r1: row, c2: col + width - 1, r2: row + len(values) - 1}, nil
}

func (a *WorkbookAdapter) WriteValues(_ context.Context, startCell string, values [][]any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start, err := a.resolve(startCell)
	if err != nil {
		return "", err
	}
	written, err := a.writeBlock(start.sheet, start.c1, start.r1, values)
	if err != nil {
		return "", err
	}
	return written.address(), nil
}

func (a *WorkbookAdapter) WriteSelected(_ context.Context, values [][]any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sel := a.currentSelection()
	trimmed := false
	if len(values) > sel.rows() {
		values = values[:sel.rows()]
		trimmed = true
	}
	fitted := make([][]any, len(values))
	for i, line := range values {
		if len(line) > sel.cols() {
			line = line[:sel.cols()]
			trimmed = true
		}
		fitted[i] = line
	}

	if _, err := a.writeBlock(sel.sheet, sel.c1, sel.r1, fitted); err != nil {
		return "", err
	}
	if trimmed {
		return sel.address() + " (Note: Data was trimmed to fit the range)", nil
	}
	return sel.address(), nil
}

func (a *WorkbookAdapter) ReadCell(_ context.Context, cell string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(cell)
	if err != nil {
		return "", err
	}
	return a.file.GetCellValue(r.sheet, r.start())
}

func (a *WorkbookAdapter) ReadRange(_ context.Context, address string) (*entity.RangeData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return nil, err
	}
	values, err := a.readValues(r)
	if err != nil {
		return nil, err
	}
	return &entity.RangeData{Sheet: r.sheet, Address: r.address(), Values: values}, nil
}

func (a *WorkbookAdapter) ReadBlock(_ context.Context, startCell string, rows, cols int) (*entity.RangeData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("block size must be positive, got %dx%d", rows, cols)
	}
	start, err := a.resolve(startCell)
	if err != nil {
		return nil, err
	}
	r := cellRange{sheet: start.sheet, c1: start.c1, r1: start.r1, c2: start.c1 + cols - 1, r2: start.r1 + rows - 1}
	values, err := a.readValues(r)
	if err != nil {
		return nil, err
	}
	return &entity.RangeData{Sheet: r.sheet, Address: r.address(), Values: values}, nil
}

func (a *WorkbookAdapter) FormatCell(_ context.Context, address string, format entity.CellFormat) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}

	style := &excelize.Style{}
	if format.FontColor != "" || format.Bold != nil {
		style.Font = &excelize.Font{Color: format.FontColor}
		if format.Bold != nil {
			style.Font.Bold = *format.Bold
		}
	}
	if format.BackgroundColor != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{format.BackgroundColor}}
	}

	id, err := a.file.NewStyle(style)
	if err != nil {
		return "", fmt.Errorf("create style: %w", err)
	}
	if err := a.file.SetCellStyle(r.sheet, r.start(), r.end(), id); err != nil {
		return "", fmt.Errorf("apply style: %w", err)
	}
	return fmt.Sprintf("Formatted cell %s successfully", strings.TrimSpace(address)), nil
}
