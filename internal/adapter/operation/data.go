package operation

import (
	"context"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

type filterInput struct {
	Range      string         `json:"range"`
	Column     string         `json:"column"`
	FilterType string         `json:"filterType"`
	Criteria   map[string]any `json:"criteria"`
}

type sortInput struct {
	Range      string             `json:"range"`
	SortFields []entity.SortField `json:"sortFields"`
	MatchCase  bool               `json:"matchCase"`
	HasHeaders bool               `json:"hasHeaders"`
}

func dataOperations(wb output.WorkbookPort) []entity.Operation {
	return []entity.Operation{
		{
			Name:        entity.OpAnalyzeData,
			Description: "Analyze a 2D array of values: summary (sum, average, max, min), trend (last minus first per column) or distribution (value frequencies).",
			Schema: schema.Strict(
				values2D("values", "Rows of values to analyze").Req(),
				schema.String("analysisType", "Kind of analysis").OneOf(AnalysisSummary, AnalysisTrend, AnalysisDistribution).Req(),
			),
			Execute: typed(func(_ context.Context, in struct {
				Values       [][]any `json:"values"`
				AnalysisType string  `json:"analysisType"`
			}) (any, error) {
				return Analyze(in.Values, in.AnalysisType)
			}),
		},
		{
			Name: entity.OpFilterData,
			Description: "Filter a range by one column and hide non-matching rows. The first row is the header. " +
				"criteria holds value (Equals, GreaterThan, LessThan, Contains), lowerBound and upperBound (Between) or values (Values).",
			Schema: schema.Strict(
				schema.String("range", "Range to filter; defaults to the selection"),
				schema.String("column", "Column letter to filter on, e.g. B").Match(`^[A-Za-z]{1,3}$`).Req(),
				schema.String("filterType", "Comparison").OneOf(entity.FilterTypes...).Req(),
				schema.Object("criteria", "Filter criteria").Req(),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in filterInput) (any, error) {
				return wb.Filter(ctx, entity.FilterSpec{
					Range:      in.Range,
					Column:     in.Column,
					FilterType: in.FilterType,
					Criteria:   in.Criteria,
				})
			}),
		},
		{
			Name:        entity.OpSortData,
			Description: "Sort a range. Each sort field's key is the zero-based column offset within the range.",
			Schema: schema.Strict(
				schema.String("range", "Range to sort; defaults to the selection"),
				schema.Array("sortFields", "Sort keys in priority order", schema.Object("", "",
					schema.Integer("key", "Zero-based column offset").Req(),
					schema.Boolean("ascending", "Ascending order").Req(),
					schema.String("color", "Sort by this cell color"),
					schema.String("dataOption", "How text is compared").OneOf("normal", "textAsNumber"),
				).Closed()).Req(),
				schema.Boolean("matchCase", "Case-sensitive comparison"),
				schema.Boolean("hasHeaders", "Keep the first row in place"),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in sortInput) (any, error) {
				return wb.Sort(ctx, entity.SortSpec{
					Range:      in.Range,
					Fields:     in.SortFields,
					MatchCase:  in.MatchCase,
					HasHeaders: in.HasHeaders,
				})
			}),
		},
		{
			Name:        entity.OpEnableFilterUI,
			Description: "Turn on filter drop-downs for a range.",
			Schema: schema.Strict(
				schema.String("range", "Range to enable filtering on; defaults to the selection"),
				schema.Boolean("hasHeaders", "The first row holds headers"),
			),
			Mutating: true,
			Execute: typed(func(ctx context.Context, in struct {
				Range      string `json:"range"`
				HasHeaders *bool  `json:"hasHeaders"`
			}) (any, error) {
				hasHeaders := in.HasHeaders == nil || *in.HasHeaders
				return wb.EnableAutoFilter(ctx, in.Range, hasHeaders)
			}),
		},
	}
}
