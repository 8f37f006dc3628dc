package operation

import (
	"context"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

type pivotInput struct {
	SourceDataRange string                  `json:"sourceDataRange"`
	DestinationCell string                  `json:"destinationCell"`
	RowFields       []string                `json:"rowFields"`
	ColumnFields    []string                `json:"columnFields"`
	DataFields      []entity.PivotDataField `json:"dataFields"`
	FilterFields    []string                `json:"filterFields"`
}

func chartOperations(wb output.WorkbookPort) []entity.Operation {
	return []entity.Operation{
		{
			Name:        entity.OpAddChart,
			Description: "Create a chart from a data range. The first row is used as series names and the first column as categories.",
			Schema: schema.Strict(
				schema.String("dataRange", "Range with the chart data, e.g. A1:C10").Req(),
				schema.String("chartType", "Kind of chart").OneOf(entity.ChartTypes...).Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in struct {
				DataRange string `json:"dataRange"`
				ChartType string `json:"chartType"`
			}) (any, error) {
				if _, err := wb.AddChart(ctx, entity.ChartSpec{DataRange: in.DataRange, ChartType: in.ChartType}); err != nil {
					return nil, err
				}
				return map[string]string{"status": "ok"}, nil
			}),
		},
		{
			Name:        entity.OpAddPivotTable,
			Description: "Create a pivot table from a source range with a header row. Field names refer to header cells.",
			Schema: schema.Strict(
				schema.String("sourceDataRange", "Source range including headers, e.g. A1:D100").Req(),
				schema.String("destinationCell", "Top-left cell of the pivot table, e.g. F1 or Pivot!A1").Req(),
				schema.Array("rowFields", "Header names to group rows by", schema.String("", "")).Req(),
				schema.Array("columnFields", "Header names to group columns by", schema.String("", "")).Req(),
				schema.Array("dataFields", "Aggregated fields", schema.Object("", "",
					schema.String("name", "Header name").Req(),
					schema.String("function", "Aggregation").OneOf(entity.PivotFunctions...).Req(),
				).Closed()).Req(),
				schema.Array("filterFields", "Header names used as report filters", schema.String("", "")),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in pivotInput) (any, error) {
				return wb.AddPivotTable(ctx, entity.PivotSpec{
					SourceRange:  in.SourceDataRange,
					Destination:  in.DestinationCell,
					RowFields:    in.RowFields,
					ColumnFields: in.ColumnFields,
					DataFields:   in.DataFields,
					FilterFields: in.FilterFields,
				})
			}),
		},
	}
}
