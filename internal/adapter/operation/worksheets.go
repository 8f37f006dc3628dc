package operation

import (
	"context"
	"fmt"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

func worksheetOperations(wb output.WorkbookPort) []entity.Operation {
	return []entity.Operation{
		{
			Name:        entity.OpManageWorksheet,
			Description: "Create or delete a worksheet.",
			Schema: schema.Strict(
				schema.String("action", "What to do").OneOf("create", "delete").Req(),
				schema.String("sheetName", "Worksheet name").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in struct {
				Action    string `json:"action"`
				SheetName string `json:"sheetName"`
			}) (any, error) {
				switch in.Action {
				case "create":
					return wb.CreateWorksheet(ctx, in.SheetName)
				case "delete":
					return wb.DeleteWorksheet(ctx, in.SheetName)
				}
				return nil, fmt.Errorf("unsupported action %q", in.Action)
			}),
		},
		{
			Name:        entity.OpGetWorksheetNames,
			Description: "List the names of all worksheets in the workbook.",
			Schema:      schema.Strict(),
			Execute: func(ctx context.Context, _ map[string]any) (any, error) {
				return wb.WorksheetNames(ctx)
			},
		},
		{
			Name:        entity.OpGetActiveWorksheetName,
			Description: "Return the name of the active worksheet.",
			Schema:      schema.Strict(),
			Execute: func(ctx context.Context, _ map[string]any) (any, error) {
				return wb.ActiveWorksheet(ctx)
			},
		},
	}
}
