package operation

import (
	"context"
	"fmt"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

type writeInput struct {
	StartCell string  `json:"startCell"`
	Values    [][]any `json:"values"`
}

type formatInput struct {
	CellAddress     string `json:"cellAddress"`
	FontColor       string `json:"fontColor"`
	BackgroundColor string `json:"backgroundColor"`
	Bold            *bool  `json:"bold"`
}

func cellOperations(wb output.WorkbookPort) []entity.Operation {
	return []entity.Operation{
		{
			Name:        entity.OpWriteToExcel,
			Description: "Write a 2D array of values starting at a cell. Returns the address of the written range.",
			Schema: schema.Strict(
				schema.String("startCell", "Top-left cell of the block, e.g. A1 or Data!B2").Req(),
				values2D("values", "Rows of cell values").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in writeInput) (any, error) {
				return wb.WriteValues(ctx, in.StartCell, in.Values)
			}),
		},
		{
			Name:        entity.OpWriteToSelectedRange,
			Description: "Write a 2D array of values into the currently selected range. Extra rows or columns are trimmed.",
			Schema: schema.Strict(
				values2D("values", "Rows of cell values").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in writeInput) (any, error) {
				return wb.WriteSelected(ctx, in.Values)
			}),
		},
		{
			Name:        entity.OpReadFromExcel,
			Description: "Read the value of a single cell.",
			Schema: schema.Strict(
				schema.String("cellAddress", "Cell to read, e.g. B3").Req(),
			),
			Execute: typed(func(ctx context.Context, in struct {
				CellAddress string `json:"cellAddress"`
			}) (any, error) {
				return wb.ReadCell(ctx, in.CellAddress)
			}),
		},
		{
			Name:        entity.OpFormatCell,
			Description: "Set font color, background color or bold on a cell or range. Colors are #RRGGBB.",
			Schema: schema.Strict(
				schema.String("cellAddress", "Cell or range to format").Req(),
				hexColor("fontColor", "Font color, e.g. #FF0000"),
				hexColor("backgroundColor", "Fill color, e.g. #FFFF00"),
				schema.Boolean("bold", "Bold font"),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in formatInput) (any, error) {
				if in.FontColor == "" && in.BackgroundColor == "" && in.Bold == nil {
					return nil, fmt.Errorf("nothing to format: set fontColor, backgroundColor or bold")
				}
				return wb.FormatCell(ctx, in.CellAddress, entity.CellFormat{
					FontColor:       in.FontColor,
					BackgroundColor: in.BackgroundColor,
					Bold:            in.Bold,
				})
			}),
		},
		{
			Name:        entity.OpAnalyzeSelectedRange,
			Description: "Describe the current selection: address, size and values.",
			Schema:      schema.Strict(),
			Execute: func(ctx context.Context, _ map[string]any) (any, error) {
				return wb.Selection(ctx)
			},
		},
		{
			Name:        entity.OpReadRange,
			Description: "Read the values of a range. Without rangeAddress the current selection is read.",
			Schema: schema.Strict(
				schema.String("rangeAddress", "Range to read, e.g. A1:D20"),
			),
			Execute: typed(func(ctx context.Context, in struct {
				RangeAddress string `json:"rangeAddress"`
			}) (any, error) {
				return wb.ReadRange(ctx, in.RangeAddress)
			}),
		},
	}
}
