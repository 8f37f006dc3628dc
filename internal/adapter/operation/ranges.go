package operation

import (
	"context"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

type rangeInput struct {
	Range  string `json:"range"`
	Across bool   `json:"across"`
}

func rangeOperations(wb output.WorkbookPort) []entity.Operation {
	return []entity.Operation{
		{
			Name:        entity.OpMergeCells,
			Description: "Merge the cells of a range. With across=true each row is merged separately.",
			Schema: schema.Strict(
				schema.String("range", "Range to merge, e.g. A1:C1").Req(),
				schema.Boolean("across", "Merge each row separately"),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in rangeInput) (any, error) {
				return wb.MergeCells(ctx, in.Range, in.Across)
			}),
		},
		{
			Name:        entity.OpUnmergeCells,
			Description: "Unmerge every merged area within a range.",
			Schema: schema.Strict(
				schema.String("range", "Range to unmerge").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in rangeInput) (any, error) {
				return wb.UnmergeCells(ctx, in.Range)
			}),
		},
		{
			Name:        entity.OpAutofitColumns,
			Description: "Fit column widths to their content.",
			Schema: schema.Strict(
				schema.String("range", "Range whose columns are fitted").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in rangeInput) (any, error) {
				return wb.AutofitColumns(ctx, in.Range)
			}),
		},
		{
			Name:        entity.OpAutofitRows,
			Description: "Fit row heights to their content.",
			Schema: schema.Strict(
				schema.String("range", "Range whose rows are fitted").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in rangeInput) (any, error) {
				return wb.AutofitRows(ctx, in.Range)
			}),
		},
	}
}
