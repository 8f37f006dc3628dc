package output

import (
	"context"

	"excel-agent/internal/domain/entity"
)

// WorkbookPort is the spreadsheet document the operations act on. Range
// addresses use A1 notation and may be qualified with a sheet ("Data!A1:B4");
// unqualified addresses refer to the active worksheet. An empty address means
// the current selection where noted.
type WorkbookPort interface {
	WriteValues(ctx context.Context, startCell string, values [][]any) (string, error)
	WriteSelected(ctx context.Context, values [][]any) (string, error)
	ReadCell(ctx context.Context, cell string) (string, error)
	ReadRange(ctx context.Context, address string) (*entity.RangeData, error)
	ReadBlock(ctx context.Context, startCell string, rows, cols int) (*entity.RangeData, error)
	FormatCell(ctx context.Context, address string, format entity.CellFormat) (string, error)

	Selection(ctx context.Context) (*entity.SelectionInfo, error)
	Select(ctx context.Context, address string) error

	AddChart(ctx context.Context, spec entity.ChartSpec) (string, error)
	AddPivotTable(ctx context.Context, spec entity.PivotSpec) (string, error)

	MergeCells(ctx context.Context, address string, across bool) (string, error)
	UnmergeCells(ctx context.Context, address string) (string, error)
	AutofitColumns(ctx context.Context, address string) (string, error)
	AutofitRows(ctx context.Context, address string) (string, error)

	Filter(ctx context.Context, spec entity.FilterSpec) (*entity.FilterResult, error)
	Sort(ctx context.Context, spec entity.SortSpec) (string, error)
	EnableAutoFilter(ctx context.Context, address string, hasHeaders bool) (string, error)

	ApplyConditionalFormat(ctx context.Context, spec entity.ConditionalFormatSpec) (string, error)
	ClearConditionalFormats(ctx context.Context, address string) (string, error)

	CreateWorksheet(ctx context.Context, name string) (string, error)
	DeleteWorksheet(ctx context.Context, name string) (string, error)
	WorksheetNames(ctx context.Context) ([]string, error)
	ActiveWorksheet(ctx context.Context) (string, error)
	// SheetContent renders a worksheet's used range as tab-separated text.
	SheetContent(ctx context.Context, sheet string) (string, error)

	Save() error
	Close() error
}
