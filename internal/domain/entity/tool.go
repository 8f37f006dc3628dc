package entity

import (
	"context"

	"excel-agent/internal/domain/schema"
)

type OperationName string

const (
	OpWriteToExcel            OperationName = "write_to_excel"
	OpWriteToSelectedRange    OperationName = "write_to_selected_range"
	OpReadFromExcel           OperationName = "read_from_excel"
	OpFormatCell              OperationName = "format_cell"
	OpAnalyzeSelectedRange    OperationName = "analyze_selected_range"
	OpAddChart                OperationName = "add_chart"
	OpAddPivotTable           OperationName = "add_pivot_table"
	OpReadRange               OperationName = "read_range"
	OpMergeCells              OperationName = "merge_cells"
	OpUnmergeCells            OperationName = "unmerge_cells"
	OpAutofitColumns          OperationName = "autofit_columns"
	OpAutofitRows             OperationName = "autofit_rows"
	OpAnalyzeData             OperationName = "analyze_data"
	OpFilterData              OperationName = "filter_data"
	OpSortData                OperationName = "sort_data"
	OpEnableFilterUI          OperationName = "enable_filter_ui"
	OpApplyConditionalFormat  OperationName = "apply_conditional_format"
	OpClearConditionalFormats OperationName = "clear_conditional_formats"
	OpManageWorksheet         OperationName = "manage_worksheet"
	OpGetWorksheetNames       OperationName = "get_worksheet_names"
	OpGetActiveWorksheetName  OperationName = "get_active_worksheet_name"
)

// Executor performs an operation with validated arguments. The payload is
// returned to the model verbatim if it is a string and as JSON otherwise.
type Executor func(ctx context.Context, args map[string]any) (any, error)

// Operation is a named capability the model may invoke.
type Operation struct {
	Name        OperationName
	Description string
	Schema      *schema.Schema
	Mutating    bool
	Execute     Executor
}

func (o Operation) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        string(o.Name),
		Description: o.Description,
		Parameters:  o.Schema.JSONSchema(),
	}
}
