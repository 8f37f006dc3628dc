package xlsx

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"excel-agent/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

// Filter hides the data rows whose value in spec.Column does not match and
// records the criterion on the sheet's AutoFilter. The first row is the header.
func (a *WorkbookAdapter) Filter(_ context.Context, spec entity.FilterSpec) (*entity.FilterResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(spec.Range)
	if err != nil {
		return nil, err
	}
	column := strings.ToUpper(spec.Column)
	col, err := excelize.ColumnNameToNumber(column)
	if err != nil {
		return nil, err
	}
	if !r.contains(col, r.r1) {
		return nil, fmt.Errorf("column %s is outside range %s", column, r.address())
	}

	match, expr, err := filterPredicate(spec.FilterType, spec.Criteria)
	if err != nil {
		return nil, err
	}

	matched := 0
	for row := r.r1 + 1; row <= r.r2; row++ {
		s, err := a.file.GetCellValue(r.sheet, cellName(col, row))
		if err != nil {
			return nil, err
		}
		visible := match(s)
		if visible {
			matched++
		}
		if err := a.file.SetRowVisible(r.sheet, row, visible); err != nil {
			return nil, fmt.Errorf("set row %d visibility: %w", row, err)
		}
	}

	var opts []excelize.AutoFilterOptions
	if expr != "" {
		opts = []excelize.AutoFilterOptions{{Column: column, Expression: expr}}
	}
	if err := a.file.AutoFilter(r.sheet, r.address(), opts); err != nil {
		if opts == nil {
			return nil, fmt.Errorf("enable autofilter: %w", err)
		}
		a.logger.Debug("Filter expression rejected, keeping plain autofilter", "expression", expr, "error", err)
		if err := a.file.AutoFilter(r.sheet, r.address(), nil); err != nil {
			return nil, fmt.Errorf("enable autofilter: %w", err)
		}
	}

	return &entity.FilterResult{Range: r.address(), FilteredCount: matched}, nil
}

// filterPredicate returns the row matcher for filterType and the equivalent
// AutoFilter expression, which is empty when none exists.
func filterPredicate(filterType string, criteria map[string]any) (func(string) bool, string, error) {
	number := func(key string) (float64, error) {
		v, ok := criteria[key]
		if !ok {
			return 0, fmt.Errorf("criteria.%s is required for %s", key, filterType)
		}
		switch n := v.(type) {
		case float64:
			return n, nil
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, nil
			}
		}
		return 0, fmt.Errorf("criteria.%s must be a number", key)
	}
	text := func(key string) (string, error) {
		v, ok := criteria[key]
		if !ok || v == nil {
			return "", fmt.Errorf("criteria.%s is required for %s", key, filterType)
		}
		return render(v), nil
	}
	numeric := func(s string, cmp func(float64) bool) bool {
		f, err := strconv.ParseFloat(s, 64)
		return err == nil && cmp(f)
	}

	switch filterType {
	case entity.FilterEquals:
		want, err := text("value")
		if err != nil {
			return nil, "", err
		}
		return func(s string) bool { return sameValue(s, want) }, "x == " + expressionToken(want), nil

	case entity.FilterGreaterThan:
		n, err := number("value")
		if err != nil {
			return nil, "", err
		}
		return func(s string) bool { return numeric(s, func(f float64) bool { return f > n }) }, "x > " + render(n), nil

	case entity.FilterLessThan:
		n, err := number("value")
		if err != nil {
			return nil, "", err
		}
		return func(s string) bool { return numeric(s, func(f float64) bool { return f < n }) }, "x < " + render(n), nil

	case entity.FilterBetween:
		lo, err := number("lowerBound")
		if err != nil {
			return nil, "", err
		}
		hi, err := number("upperBound")
		if err != nil {
			return nil, "", err
		}
		return func(s string) bool { return numeric(s, func(f float64) bool { return f >= lo && f <= hi }) },
			fmt.Sprintf("x >= %s and x <= %s", render(lo), render(hi)), nil

	case entity.FilterContains:
		want, err := text("value")
		if err != nil {
			return nil, "", err
		}
		lower := strings.ToLower(want)
		return func(s string) bool { return strings.Contains(strings.ToLower(s), lower) },
			"x == " + expressionToken("*"+want+"*"), nil

	case entity.FilterValues:
		raw, ok := criteria["values"].([]any)
		if !ok || len(raw) == 0 {
			return nil, "", fmt.Errorf("criteria.values must be a non-empty array for %s", filterType)
		}
		wanted := make([]string, len(raw))
		for i, v := range raw {
			wanted[i] = render(v)
		}
		match := func(s string) bool {
			for _, w := range wanted {
				if sameValue(s, w) {
					return true
				}
			}
			return false
		}
		// AutoFilter expressions hold at most two conditions.
		expr := ""
		if len(wanted) <= 2 {
			parts := make([]string, len(wanted))
			for i, w := range wanted {
				parts[i] = "x == " + expressionToken(w)
			}
			expr = strings.Join(parts, " or ")
		}
		return match, expr, nil
	}
	return nil, "", fmt.Errorf("unsupported filter type %q", filterType)
}

func sameValue(cell, want string) bool {
	if strings.EqualFold(cell, want) {
		return true
	}
	a, errA := strconv.ParseFloat(cell, 64)
	b, errB := strconv.ParseFloat(want, 64)
	return errA == nil && errB == nil && a == b
}

func expressionToken(s string) string {
	if strings.ContainsAny(s, " \t") {
		return strconv.Quote(s)
	}
	return s
}

func render(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	case bool:
		return strings.ToUpper(strconv.FormatBool(val))
	default:
		return fmt.Sprint(val)
	}
}

func (a *WorkbookAdapter) EnableAutoFilter(_ context.Context, address string, hasHeaders bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}
	if err := a.file.AutoFilter(r.sheet, r.address(), nil); err != nil {
		return "", fmt.Errorf("enable autofilter: %w", err)
	}
	msg := fmt.Sprintf("AutoFilter UI enabled on range %s", r.address())
	if !hasHeaders {
		// xlsx filters always treat the first row as the header.
		msg += fmt.Sprintf(" (row %d shows the filter buttons)", r.r1)
	}
	return msg, nil
}

type sortCell struct {
	value   string
	kind    excelize.CellType
	formula string
	style   int
}

func (c sortCell) blank() bool {
	return c.value == "" && c.formula == ""
}

// Sort reorders the rows of a range by its sort fields. Values, formulas and
// styles move with their rows. Blank keys sort last in either direction.
func (a *WorkbookAdapter) Sort(_ context.Context, spec entity.SortSpec) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(spec.Range)
	if err != nil {
		return "", err
	}
	if len(spec.Fields) == 0 {
		return "", fmt.Errorf("at least one sort field is required")
	}
	for _, f := range spec.Fields {
		if f.Key < 0 || f.Key >= r.cols() {
			return "", fmt.Errorf("sort key %d is outside range %s (%d columns)", f.Key, r.address(), r.cols())
		}
		if f.Color != "" {
			return "", fmt.Errorf("sorting by color is not supported")
		}
	}

	first := r.r1
	if spec.HasHeaders {
		first++
	}
	if first >= r.r2 {
		return fmt.Sprintf("Sorted range %s", r.address()), nil
	}

	rows := make([][]sortCell, 0, r.r2-first+1)
	for row := first; row <= r.r2; row++ {
		line := make([]sortCell, r.cols())
		for i := range line {
			if line[i], err = a.readSortCell(r.sheet, cellName(r.c1+i, row)); err != nil {
				return "", err
			}
		}
		rows = append(rows, line)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range spec.Fields {
			x, y := rows[i][f.Key], rows[j][f.Key]
			if x.blank() != y.blank() {
				return y.blank()
			}
			c := compareCells(x.value, y.value, spec.MatchCase)
			if c == 0 {
				continue
			}
			if f.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	for i, line := range rows {
		for j, c := range line {
			if err := a.writeSortCell(r.sheet, cellName(r.c1+j, first+i), c); err != nil {
				return "", err
			}
		}
	}
	return fmt.Sprintf("Sorted range %s", r.address()), nil
}

func (a *WorkbookAdapter) readSortCell(sheet, cell string) (sortCell, error) {
	var c sortCell
	var err error
	if c.value, err = a.file.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true}); err != nil {
		return c, err
	}
	if c.kind, err = a.file.GetCellType(sheet, cell); err != nil {
		return c, err
	}
	if c.formula, err = a.file.GetCellFormula(sheet, cell); err != nil {
		return c, err
	}
	if c.style, err = a.file.GetCellStyle(sheet, cell); err != nil {
		return c, err
	}
	return c, nil
}

func (a *WorkbookAdapter) writeSortCell(sheet, cell string, c sortCell) error {
	var err error
	switch {
	case c.formula != "":
		if err = a.file.SetCellValue(sheet, cell, nil); err == nil {
			err = a.file.SetCellFormula(sheet, cell, c.formula)
		}
	case c.value == "":
		err = a.file.SetCellValue(sheet, cell, nil)
	case c.kind == excelize.CellTypeBool:
		err = a.file.SetCellBool(sheet, cell, c.value == "1" || strings.EqualFold(c.value, "true"))
	case c.kind == excelize.CellTypeSharedString || c.kind == excelize.CellTypeInlineString || c.kind == excelize.CellTypeFormula:
		err = a.file.SetCellStr(sheet, cell, c.value)
	default:
		if f, perr := strconv.ParseFloat(c.value, 64); perr == nil {
			err = a.file.SetCellFloat(sheet, cell, f, -1, 64)
		} else {
			err = a.file.SetCellStr(sheet, cell, c.value)
		}
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", cell, err)
	}
	return a.file.SetCellStyle(sheet, cell, cell, c.style)
}

// compareCells orders numbers before text, numerically and then lexically.
func compareCells(x, y string, matchCase bool) int {
	fx, errX := strconv.ParseFloat(x, 64)
	fy, errY := strconv.ParseFloat(y, 64)
	switch {
	case errX == nil && errY == nil:
		switch {
		case fx < fy:
			return -1
		case fx > fy:
			return 1
		}
		return 0
	case errX == nil:
		return -1
	case errY == nil:
		return 1
	}
	if !matchCase {
		x, y = strings.ToLower(x), strings.ToLower(y)
	}
	return strings.Compare(x, y)
}
