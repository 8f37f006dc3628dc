package operation

import (
	"context"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

func formatOperations(wb output.WorkbookPort) []entity.Operation {
	return []entity.Operation{
		{
			Name: entity.OpApplyConditionalFormat,
			Description: "Add a conditional format to a range. rule depends on formatType: " +
				"cellValue {operator, formula1, formula2}; colorScale {minimum:{color}, midpoint:{color}, maximum:{color}}; " +
				"dataBar {barColor}; containsText {text}; iconSet {style}; custom {formula}. " +
				"format may set fontColor, backgroundColor and bold.",
			Schema: schema.Strict(
				schema.String("range", "Range to format").Req(),
				schema.String("formatType", "Kind of conditional format").OneOf(entity.ConditionalFormatTypes...).Req(),
				schema.Object("rule", "Rule definition").Req(),
				schema.Object("format", "Format applied to matching cells"),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in struct {
				Range      string         `json:"range"`
				FormatType string         `json:"formatType"`
				Rule       map[string]any `json:"rule"`
				Format     map[string]any `json:"format"`
			}) (any, error) {
				return wb.ApplyConditionalFormat(ctx, entity.ConditionalFormatSpec{
					Range:      in.Range,
					FormatType: in.FormatType,
					Rule:       in.Rule,
					Format:     in.Format,
				})
			}),
		},
		{
			Name:        entity.OpClearConditionalFormats,
			Description: "Remove conditional formats from a range.",
			Schema: schema.Strict(
				schema.String("range", "Range to clear").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in rangeInput) (any, error) {
				return wb.ClearConditionalFormats(ctx, in.Range)
			}),
		},
	}
}
