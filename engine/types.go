package engine

// ============================================================================
// TABLERO ENGINE TYPES - Record tables, query specs, render-ready output
// ============================================================================
// The engine never loads files and never calls external services. Callers
// hand it a RecordView (usually a *Frame) and a QuerySpec describing the
// filter → group → aggregate → render steps of one dashboard section.
// ============================================================================

import "errors"

var (
	// ErrUnknownColumn is returned when an operation names a column the table lacks.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNoNumericColumns is returned by Describe when no column is numeric.
	ErrNoNumericColumns = errors.New("no numeric columns to describe")
)

// ============================================================================
// QUERYSPEC - What one dashboard section computes
// ============================================================================

// QuerySpec defines what the engine should compute.
// Pages build these from widget state; the engine consumes them.
type QuerySpec struct {
	Intent      string   `json:"intent"`      // "text", "table", "chart"
	Filters     Filters  `json:"filters"`     // Which records to include
	Aggregation string   `json:"aggregation"` // "sum", "count", "avg", "max", "min", "list", "none"
	Measure     string   `json:"measure"`     // Which measure to aggregate (empty → default)
	GroupBy     []string `json:"groupBy"`     // ["x"], ["x", "series"]
	Facet       string   `json:"facet,omitempty"`
	SortBy      string   `json:"sortBy"` // "value_desc", "value_asc", "alpha_asc", "label_desc", "date_asc", "date_desc"
	Limit       int      `json:"limit"`  // 0 = all
	Visualize   string   `json:"visualize"`
	Title       string   `json:"title"`
	Labels      Labels   `json:"labels,omitempty"`
	Hole        float64  `json:"hole,omitempty"` // pie only: 0 = pie, 0 < hole < 1 = donut
	Reply       string   `json:"reply"`          // Template: "{count} procesos, principal: {top_category}"
}

// Labels overrides display names for dimension keys and the value axis.
type Labels map[string]string

// Filters define which records to include.
//
// Dimensions: keys are column names, values are allowed values.
// OR within a dimension, AND across dimensions.
//
// Ranges: inclusive numeric bounds per measure column.
//
// Strict switches from query semantics (an empty list means "no restriction")
// to widget semantics: a listed key with no values matches nothing and null
// cells never match, the way a multiselect with everything cleared behaves.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
	Ranges     map[string]Range    `json:"ranges,omitempty"`
	Strict     bool                `json:"strict,omitempty"`
}

// Range is an inclusive [Min, Max] bound on a numeric column.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// HasFilter returns true if a specific dimension filter is set.
func (f Filters) HasFilter(dimension string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[dimension]
	if f.Strict {
		return ok
	}
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	if len(f.Ranges) > 0 {
		return false
	}
	for _, vals := range f.Dimensions {
		if len(vals) > 0 || f.Strict {
			return false
		}
	}
	return true
}

// ============================================================================
// RESULT - Render-ready output
// ============================================================================

// Result is the engine's render-ready output.
type Result struct {
	Success bool   `json:"success"`
	Type    string `json:"type"` // "chart", "table", "text"
	Reply   string `json:"reply"`
	Title   string `json:"title"`

	// Exactly one of these is populated based on Type:
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	TableData   *TableData   `json:"tableData,omitempty"`
	TextData    *TextData    `json:"textData,omitempty"`

	RecordCount int      `json:"recordCount"`
	Errors      []string `json:"errors,omitempty"`
}

// ============================================================================
// GROUP - Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
// Builders convert these into ChartConfig, TableData, or TextData.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
// Faceted charts carry one ChartPanel per facet value and leave Series empty.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // "bar", "line", "pie", "stacked_bar", "area"
	BarMode    string        `json:"barMode,omitempty"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Legend     string        `json:"legend,omitempty"`
	Hole       float64       `json:"hole,omitempty"`
	Series     []ChartSeries `json:"series,omitempty"`
	Facet      string        `json:"facet,omitempty"`
	Panels     []ChartPanel  `json:"panels,omitempty"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartPanel is one facet of a faceted chart.
type ChartPanel struct {
	Title  string        `json:"title"`
	Series []ChartSeries `json:"series"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// IsEmpty reports whether the chart has no points to draw.
func (c *ChartConfig) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, s := range c.AllSeries() {
		if len(s.Data) > 0 {
			return false
		}
	}
	return true
}

// AllSeries flattens panel series and top-level series.
func (c *ChartConfig) AllSeries() []ChartSeries {
	if c == nil {
		return nil
	}
	out := append([]ChartSeries{}, c.Series...)
	for _, p := range c.Panels {
		out = append(out, p.Series...)
	}
	return out
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Headers returns the column labels in order.
func (t *TableData) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Label
	}
	return headers
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// TextData is structured data for single-value answers (type="text").
type TextData struct {
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Count    int     `json:"count"`
}
