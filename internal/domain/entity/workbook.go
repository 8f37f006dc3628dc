package entity

// RangeData is a rectangular block of cell values read from a worksheet.
type RangeData struct {
	Sheet   string  `json:"sheet"`
	Address string  `json:"address"`
	Values  [][]any `json:"values"`
}

type SelectionInfo struct {
	Sheet       string  `json:"sheet"`
	Address     string  `json:"address"`
	RowCount    int     `json:"rowCount"`
	ColumnCount int     `json:"columnCount"`
	Values      [][]any `json:"values"`
}

type CellFormat struct {
	FontColor       string
	BackgroundColor string
	Bold            *bool
}

type ChartSpec struct {
	DataRange string
	ChartType string
}

type PivotDataField struct {
	Name     string `json:"name"`
	Function string `json:"function"`
}

type PivotSpec struct {
	SourceRange  string
	Destination  string
	RowFields    []string
	ColumnFields []string
	DataFields   []PivotDataField
	FilterFields []string
}

type FilterSpec struct {
	Range      string
	Column     string
	FilterType string
	Criteria   map[string]any
}

type FilterResult struct {
	Range         string `json:"range"`
	FilteredCount int    `json:"filteredCount"`
}

type SortField struct {
	Key        int    `json:"key"`
	Ascending  bool   `json:"ascending"`
	Color      string `json:"color,omitempty"`
	DataOption string `json:"dataOption,omitempty"`
}

type SortSpec struct {
	Range      string
	Fields     []SortField
	MatchCase  bool
	HasHeaders bool
}

type ConditionalFormatSpec struct {
	Range      string
	FormatType string
	Rule       map[string]any
	Format     map[string]any
}

// SheetRelevance scores a worksheet against the user's request.
type SheetRelevance struct {
	Sheet string
	Score float64
}

// ChartTypes lists the chart types the workbook can create.
var ChartTypes = []string{
	"ColumnClustered", "ColumnStacked", "ColumnStacked100",
	"BarClustered", "BarStacked", "BarStacked100",
	"Line", "3DLine", "Pie", "3DPie", "PieOfPie", "BarOfPie", "Doughnut",
	"Area", "AreaStacked", "AreaStacked100", "3DArea", "3DColumn",
	"XYScatter", "Bubble", "Radar",
}

var PivotFunctions = []string{
	"sum", "count", "average", "max", "min", "product",
	"countNumbers", "stdDev", "stdDevP", "var", "varP",
}

const (
	FilterEquals      = "Equals"
	FilterGreaterThan = "GreaterThan"
	FilterLessThan    = "LessThan"
	FilterBetween     = "Between"
	FilterContains    = "Contains"
	FilterValues      = "Values"
)

var FilterTypes = []string{FilterEquals, FilterGreaterThan, FilterLessThan, FilterBetween, FilterContains, FilterValues}

const (
	ConditionalCellValue    = "cellValue"
	ConditionalColorScale   = "colorScale"
	ConditionalDataBar      = "dataBar"
	ConditionalContainsText = "containsText"
	ConditionalIconSet      = "iconSet"
	ConditionalCustom       = "custom"
)

var ConditionalFormatTypes = []string{
	ConditionalCellValue, ConditionalColorScale, ConditionalDataBar,
	ConditionalContainsText, ConditionalIconSet, ConditionalCustom,
}
