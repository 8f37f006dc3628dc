package xlsx

import (
	"context"
	"fmt"
	"strings"

	"excel-agent/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

var chartTypes = map[string]excelize.ChartType{
	"ColumnClustered":  excelize.Col,
	"ColumnStacked":    excelize.ColStacked,
	"ColumnStacked100": excelize.ColPercentStacked,
	"BarClustered":     excelize.Bar,
	"BarStacked":       excelize.BarStacked,
	"BarStacked100":    excelize.BarPercentStacked,
	"Line":             excelize.Line,
	"3DLine":           excelize.Line3D,
	"Pie":              excelize.Pie,
	"3DPie":            excelize.Pie3D,
	"PieOfPie":         excelize.PieOfPie,
	"BarOfPie":         excelize.BarOfPie,
	"Doughnut":         excelize.Doughnut,
	"Area":             excelize.Area,
	"AreaStacked":      excelize.AreaStacked,
	"AreaStacked100":   excelize.AreaPercentStacked,
	"3DArea":           excelize.Area3D,
	"3DColumn":         excelize.Col3D,
	"XYScatter":        excelize.Scatter,
	"Bubble":           excelize.Bubble,
	"Radar":            excelize.Radar,
}

var pivotSubtotals = map[string]string{
	"sum":          "Sum",
	"count":        "Count",
	"average":      "Average",
	"max":          "Max",
	"min":          "Min",
	"product":      "Product",
	"countnumbers": "CountNums",
	"stddev":       "StdDev",
	"stddevp":      "StdDevp",
	"var":          "Var",
	"varp":         "Varp",
}

// AddChart plots dataRange with the first column as categories and the
// remaining columns as series. A non-numeric first row names the series.
func (a *WorkbookAdapter) AddChart(_ context.Context, spec entity.ChartSpec) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chartType, ok := chartTypes[spec.ChartType]
	if !ok {
		return "", fmt.Errorf("unsupported chart type %q", spec.ChartType)
	}
	r, err := a.resolve(spec.DataRange)
	if err != nil {
		return "", err
	}

	header, err := a.hasHeaderRow(r)
	if err != nil {
		return "", err
	}
	dataStart := r.r1
	if header {
		dataStart++
	}
	if dataStart > r.r2 {
		return "", fmt.Errorf("range %s has no data rows", r.address())
	}

	firstSeries := r.c1
	var categories string
	if r.cols() > 1 {
		firstSeries = r.c1 + 1
		categories = cellRange{sheet: r.sheet, c1: r.c1, r1: dataStart, c2: r.c1, r2: r.r2}.absolute()
	}

	var series []excelize.ChartSeries
	for col := firstSeries; col <= r.c2; col++ {
		s := excelize.ChartSeries{
			Categories: categories,
			Values:     cellRange{sheet: r.sheet, c1: col, r1: dataStart, c2: col, r2: r.r2}.absolute(),
		}
		if header {
			s.Name = cellRange{sheet: r.sheet, c1: col, r1: r.r1, c2: col, r2: r.r1}.absolute()
		}
		series = append(series, s)
	}

	anchor := cellName(r.c2+2, r.r1)
	chart := &excelize.Chart{
		Type:   chartType,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: a.chartTitle(r, header)}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	}
	if err := a.file.AddChart(r.sheet, anchor, chart); err != nil {
		return "", fmt.Errorf("add chart: %w", err)
	}
	return fmt.Sprintf("%s chart added at %s!%s", spec.ChartType, r.sheet, anchor), nil
}

func (a *WorkbookAdapter) hasHeaderRow(r cellRange) (bool, error) {
	if r.rows() < 2 {
		return false, nil
	}
	first := r.c1
	if r.cols() > 1 {
		first++
	}
	for col := first; col <= r.c2; col++ {
		s, err := a.file.GetCellValue(r.sheet, cellName(col, r.r1))
		if err != nil {
			return false, err
		}
		if _, numeric := cellValue(s).(float64); s != "" && !numeric {
			return true, nil
		}
	}
	return false, nil
}

func (a *WorkbookAdapter) chartTitle(r cellRange, header bool) string {
	if header && r.cols() == 2 {
		if s, err := a.file.GetCellValue(r.sheet, cellName(r.c2, r.r1)); err == nil && s != "" {
			return s
		}
	}
	return r.sheet + " " + r.address()
}

func (a *WorkbookAdapter) AddPivotTable(_ context.Context, spec entity.PivotSpec) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	src, err := a.resolve(spec.SourceRange)
	if err != nil {
		return "", err
	}
	if src.rows() < 2 {
		return "", fmt.Errorf("source range %s needs a header row and at least one data row", src.address())
	}
	dest, err := a.resolve(spec.Destination)
	if err != nil {
		return "", err
	}

	headers := make(map[string]bool, src.cols())
	var names []string
	for col := src.c1; col <= src.c2; col++ {
		s, err := a.file.GetCellValue(src.sheet, cellName(col, src.r1))
		if err != nil {
			return "", err
		}
		headers[s] = true
		names = append(names, s)
	}

	fields := func(in []string) ([]excelize.PivotTableField, error) {
		out := make([]excelize.PivotTableField, 0, len(in))
		for _, name := range in {
			if !headers[name] {
				return nil, fmt.Errorf("field %q is not a column header; available: %s", name, strings.Join(names, ", "))
			}
			out = append(out, excelize.PivotTableField{Data: name})
		}
		return out, nil
	}

	rows, err := fields(spec.RowFields)
	if err != nil {
		return "", err
	}
	cols, err := fields(spec.ColumnFields)
	if err != nil {
		return "", err
	}
	filters, err := fields(spec.FilterFields)
	if err != nil {
		return "", err
	}

	var data []excelize.PivotTableField
	for _, df := range spec.DataFields {
		if !headers[df.Name] {
			return "", fmt.Errorf("field %q is not a column header; available: %s", df.Name, strings.Join(names, ", "))
		}
		subtotal, ok := pivotSubtotals[strings.ToLower(df.Function)]
		if !ok {
			return "", fmt.Errorf("unsupported summary function %q", df.Function)
		}
		data = append(data, excelize.PivotTableField{
			Data:     df.Name,
			Name:     fmt.Sprintf("%s of %s", subtotal, df.Name),
			Subtotal: subtotal,
		})
	}

	width := len(rows) + maxInt(len(data), 1)*(1+len(cols)*4)
	height := src.rows() + 3 + len(filters)
	table := cellRange{sheet: dest.sheet, c1: dest.c1, r1: dest.r1, c2: dest.c1 + width, r2: dest.r1 + height}

	err = a.file.AddPivotTable(&excelize.PivotTableOptions{
		DataRange:       src.qualified(),
		PivotTableRange: table.qualified(),
		Rows:            rows,
		Columns:         cols,
		Data:            data,
		Filter:          filters,
		RowGrandTotals:  true,
		ColGrandTotals:  true,
		ShowDrill:       true,
		ShowRowHeaders:  true,
		ShowColHeaders:  true,
	})
	if err != nil {
		return "", fmt.Errorf("add pivot table: %w", err)
	}
	return fmt.Sprintf("Pivot table created at %s!%s", dest.sheet, dest.start()), nil
}
