// Package xlsx implements the workbook port on top of excelize.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

var _ output.WorkbookPort = (*WorkbookAdapter)(nil)

const maxReadCells = 10000

type Config struct {
	Path            string
	CreateIfMissing bool
}

type WorkbookAdapter struct {
	mu        sync.Mutex
	file      *excelize.File
	path      string
	selection *cellRange
	logger    output.LoggerPort
}

// Open loads the workbook at cfg.Path, or starts an empty one when the file
// does not exist and CreateIfMissing is set.
func Open(cfg Config, logger output.LoggerPort) (*WorkbookAdapter, error) {
	if cfg.Path == "" {
		return NewInMemory(logger), nil
	}

	f, err := excelize.OpenFile(cfg.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || !cfg.CreateIfMissing {
			return nil, fmt.Errorf("open workbook %s: %w", cfg.Path, err)
		}
		logger.Info("Workbook not found, starting a new one", "path", cfg.Path)
		f = excelize.NewFile()
	}

	return &WorkbookAdapter{file: f, path: cfg.Path, logger: logger}, nil
}

func NewInMemory(logger output.LoggerPort) *WorkbookAdapter {
	return &WorkbookAdapter{file: excelize.NewFile(), logger: logger}
}

func (a *WorkbookAdapter) Path() string {
	return a.path
}

func (a *WorkbookAdapter) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.path == "" {
		return fmt.Errorf("workbook has no file path")
	}
	if err := a.file.SaveAs(a.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	a.logger.Info("Workbook saved", "path", a.path)
	return nil
}

// SaveAs writes the workbook to path and keeps using it for later saves.
func (a *WorkbookAdapter) SaveAs(path string) error {
	a.mu.Lock()
	a.path = path
	a.mu.Unlock()
	return a.Save()
}

func (a *WorkbookAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

func (a *WorkbookAdapter) activeSheet() string {
	return a.file.GetSheetName(a.file.GetActiveSheetIndex())
}

func (a *WorkbookAdapter) sheetExists(name string) bool {
	idx, err := a.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// resolve parses ref against the workbook. An empty ref means the selection.
func (a *WorkbookAdapter) resolve(ref string) (cellRange, error) {
	if strings.TrimSpace(ref) == "" {
		return a.currentSelection(), nil
	}

	sheet, cells := splitSheet(ref)
	if sheet == "" {
		sheet = a.activeSheet()
	}
	if !a.sheetExists(sheet) {
		return cellRange{}, fmt.Errorf("worksheet %q does not exist", sheet)
	}

	c1, r1, c2, r2, err := parseCells(cells, a.usedRows(sheet))
	if err != nil {
		return cellRange{}, err
	}
	return cellRange{sheet: sheet, c1: c1, r1: r1, c2: c2, r2: r2}, nil
}

func (a *WorkbookAdapter) currentSelection() cellRange {
	if a.selection != nil && a.sheetExists(a.selection.sheet) {
		return *a.selection
	}
	return cellRange{sheet: a.activeSheet(), c1: 1, r1: 1, c2: 1, r2: 1}
}

func (a *WorkbookAdapter) usedRows(sheet string) int {
	rows, err := a.file.GetRows(sheet)
	if err != nil {
		return 0
	}
	return len(rows)
}

// usedRange returns the block from A1 to the last non-empty row and column.
func (a *WorkbookAdapter) usedRange(sheet string) (cellRange, [][]string, error) {
	rows, err := a.file.GetRows(sheet)
	if err != nil {
		return cellRange{}, nil, err
	}
	cols := 0
	for _, r := range rows {
		cols = maxInt(cols, len(r))
	}
	return cellRange{sheet: sheet, c1: 1, r1: 1, c2: maxInt(cols, 1), r2: maxInt(len(rows), 1)}, rows, nil
}

func (a *WorkbookAdapter) Select(_ context.Context, address string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return err
	}
	if idx, err := a.file.GetSheetIndex(r.sheet); err == nil && idx >= 0 {
		a.file.SetActiveSheet(idx)
	}
	a.selection = &r
	return nil
}

func (a *WorkbookAdapter) Selection(_ context.Context) (*entity.SelectionInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.currentSelection()
	values, err := a.readValues(r)
	if err != nil {
		return nil, err
	}
	return &entity.SelectionInfo{
		Sheet:       r.sheet,
		Address:     r.address(),
		RowCount:    r.rows(),
		ColumnCount: r.cols(),
		Values:      values,
	}, nil
}

func (a *WorkbookAdapter) CreateWorksheet(_ context.Context, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sheetExists(name) {
		return "", fmt.Errorf("worksheet %q already exists", name)
	}
	if _, err := a.file.NewSheet(name); err != nil {
		return "", fmt.Errorf("create worksheet: %w", err)
	}
	return fmt.Sprintf("New worksheet %q has been created.", name), nil
}

func (a *WorkbookAdapter) DeleteWorksheet(_ context.Context, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.sheetExists(name) {
		return "", fmt.Errorf("worksheet %q does not exist", name)
	}
	if len(a.file.GetSheetList()) == 1 {
		return "", fmt.Errorf("cannot delete %q, a workbook needs at least one worksheet", name)
	}
	if err := a.file.DeleteSheet(name); err != nil {
		return "", fmt.Errorf("delete worksheet: %w", err)
	}
	if a.selection != nil && a.selection.sheet == name {
		a.selection = nil
	}
	return fmt.Sprintf("Worksheet %q has been deleted.", name), nil
}

func (a *WorkbookAdapter) WorksheetNames(_ context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.GetSheetList(), nil
}

func (a *WorkbookAdapter) ActiveWorksheet(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeSheet(), nil
}

func (a *WorkbookAdapter) SheetContent(_ context.Context, sheet string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if sheet == "" {
		sheet = a.activeSheet()
	}
	if !a.sheetExists(sheet) {
		return "", fmt.Errorf("worksheet %q does not exist", sheet)
	}

	used, rows, err := a.usedRange(sheet)
	if err != nil {
		return "", err
	}

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, "\t")
	}
	return fmt.Sprintf("Sheet %s (%s):\n%s", sheet, used.address(), strings.Join(lines, "\n")), nil
}
