package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// cellRange is an inclusive, normalized block on one sheet. Coordinates are 1-based.
type cellRange struct {
	sheet  string
	c1, r1 int
	c2, r2 int
}

func (r cellRange) rows() int { return r.r2 - r.r1 + 1 }
func (r cellRange) cols() int { return r.c2 - r.c1 + 1 }
func (r cellRange) cells() int { return r.rows() * r.cols() }

func (r cellRange) start() string { return cellName(r.c1, r.r1) }
func (r cellRange) end() string   { return cellName(r.c2, r.r2) }

// address renders the block as "A1:B2", also for single cells.
func (r cellRange) address() string {
	return r.start() + ":" + r.end()
}

// ref renders the block for excelize APIs taking a sqref: "A1" or "A1:B2".
func (r cellRange) ref() string {
	if r.c1 == r.c2 && r.r1 == r.r2 {
		return r.start()
	}
	return r.address()
}

// absolute renders a sheet-qualified absolute reference for chart series.
func (r cellRange) absolute() string {
	c1, _ := excelize.ColumnNumberToName(r.c1)
	c2, _ := excelize.ColumnNumberToName(r.c2)
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", quoteSheet(r.sheet), c1, r.r1, c2, r.r2)
}

// qualified renders "Sheet!A1:B2" for pivot table ranges.
func (r cellRange) qualified() string {
	return quoteSheet(r.sheet) + "!" + r.address()
}

func (r cellRange) contains(col, row int) bool {
	return col >= r.c1 && col <= r.c2 && row >= r.r1 && row <= r.r2
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	return name
}

func quoteSheet(sheet string) string {
	if strings.ContainsAny(sheet, " -'!") {
		return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet
}

// splitSheet separates an optional sheet qualifier from an A1 reference.
func splitSheet(ref string) (sheet, cells string) {
	ref = strings.TrimSpace(ref)
	i := strings.LastIndex(ref, "!")
	if i < 0 {
		return "", ref
	}
	sheet = strings.TrimSpace(ref[:i])
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet, ref[i+1:]
}

// parseCells parses "A1", "A1:C4", "$A$1:$C$4" or whole columns "A:C".
// usedRows bounds whole-column references.
func parseCells(cells string, usedRows int) (c1, r1, c2, r2 int, err error) {
	cells = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(cells)), "$", "")
	if cells == "" {
		return 0, 0, 0, 0, fmt.Errorf("empty range address")
	}

	parts := strings.Split(cells, ":")
	if len(parts) > 2 {
		return 0, 0, 0, 0, fmt.Errorf("invalid range address %q", cells)
	}
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}

	if isColumnOnly(parts[0]) && isColumnOnly(parts[1]) {
		if c1, err = excelize.ColumnNameToNumber(parts[0]); err != nil {
			return 0, 0, 0, 0, err
		}
		if c2, err = excelize.ColumnNameToNumber(parts[1]); err != nil {
			return 0, 0, 0, 0, err
		}
		if usedRows < 1 {
			usedRows = 1
		}
		return minInt(c1, c2), 1, maxInt(c1, c2), usedRows, nil
	}

	if c1, r1, err = excelize.CellNameToCoordinates(parts[0]); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid cell %q: %w", parts[0], err)
	}
	if c2, r2, err = excelize.CellNameToCoordinates(parts[1]); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid cell %q: %w", parts[1], err)
	}
	return minInt(c1, c2), minInt(r1, r2), maxInt(c1, c2), maxInt(r1, r2), nil
}

func isColumnOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
