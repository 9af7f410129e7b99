package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// FRAME - Ordered record table
// ============================================================================
// A Frame is what a CSV or spreadsheet becomes once loaded: a header row and
// string cells. It is itself a RecordView, so filters and aggregations run on
// it directly; every cell is a dimension, and any cell that parses as a
// number is also a measure.
// ============================================================================

// nullTokens are cell values treated as missing, matching what pandas reads as NaN.
var nullTokens = map[string]bool{
	"":     true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"N/A":  true,
	"n/a":  true,
}

// IsNull reports whether a raw cell value counts as missing.
func IsNull(cell string) bool {
	return nullTokens[strings.TrimSpace(cell)]
}

// Frame is an in-memory record table with ordered columns.
type Frame struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewFrame creates a Frame. Rows shorter than the header are padded with
// empty cells; longer rows are truncated.
func NewFrame(name string, columns []string, rows [][]string) *Frame {
	f := &Frame{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	width := len(columns)
	for _, row := range rows {
		cells := make([]string, width)
		copy(cells, row)
		f.Rows = append(f.Rows, cells)
	}
	f.reindex()
	return f
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		if _, dup := f.index[c]; !dup {
			f.index[c] = i
		}
	}
}

// Index returns the position of a column, or -1.
func (f *Frame) Index(column string) int {
	if f.index == nil {
		f.reindex()
	}
	if i, ok := f.index[column]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the frame has the named column.
func (f *Frame) HasColumn(column string) bool {
	return f.Index(column) >= 0
}

// Cell returns the raw cell at row i, column name ("" if out of range).
func (f *Frame) Cell(i int, column string) string {
	c := f.Index(column)
	if c < 0 || i < 0 || i >= len(f.Rows) {
		return ""
	}
	return f.Rows[i][c]
}

// ── RecordView ───────────────────────────────────────────────────────────

func (f *Frame) Len() int { return len(f.Rows) }

// Dimension returns the cell as a string; null cells read as "".
func (f *Frame) Dimension(i int, key string) string {
	cell := f.Cell(i, key)
	if IsNull(cell) {
		return ""
	}
	return cell
}

// Measure returns the cell as a number; null and non-numeric cells read as 0.
func (f *Frame) Measure(i int, key string) float64 {
	v, _ := f.MeasureOK(i, key)
	return v
}

// MeasureOK parses the cell as a number and reports whether it was one.
func (f *Frame) MeasureOK(i int, key string) (float64, bool) {
	return parseNumber(f.Cell(i, key))
}

func (f *Frame) DimensionKeys() []string { return f.Columns }

// MeasureKeys returns the columns whose non-null cells are all numeric.
func (f *Frame) MeasureKeys() []string {
	var keys []string
	for _, c := range f.Columns {
		kind := inferKind(f, c)
		if kind == KindInt || kind == KindFloat {
			keys = append(keys, c)
		}
	}
	return keys
}

// ── Table operations ─────────────────────────────────────────────────────

// Head returns the first n rows. n ≤ 0 returns an empty frame.
func (f *Frame) Head(n int) *Frame {
	n = clampRows(n, len(f.Rows))
	return f.slice(0, n)
}

// Tail returns the last n rows. n ≤ 0 returns an empty frame.
func (f *Frame) Tail(n int) *Frame {
	n = clampRows(n, len(f.Rows))
	return f.slice(len(f.Rows)-n, len(f.Rows))
}

func clampRows(n, total int) int {
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}

func (f *Frame) slice(from, to int) *Frame {
	out := &Frame{Name: f.Name, Columns: f.Columns, Rows: f.Rows[from:to]}
	out.reindex()
	return out
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("select %q: %w", c, ErrUnknownColumn)
		}
	}
	rows := make([][]string, len(f.Rows))
	for r, row := range f.Rows {
		cells := make([]string, len(idx))
		for i, c := range idx {
			cells[i] = row[c]
		}
		rows[r] = cells
	}
	return NewFrame(f.Name, columns, rows), nil
}

// Column returns a copy of one column's raw cells.
func (f *Frame) Column(column string) ([]string, error) {
	c := f.Index(column)
	if c < 0 {
		return nil, fmt.Errorf("column %q: %w", column, ErrUnknownColumn)
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[c]
	}
	return out, nil
}

// Clone deep-copies the frame so callers can clean it without touching the original.
func (f *Frame) Clone() *Frame {
	return NewFrame(f.Name, f.Columns, f.Rows)
}

// Normalize upper-cases and trims the listed columns in place.
// Null cells stay null; unknown columns are ignored.
func (f *Frame) Normalize(columns ...string) {
	for _, column := range columns {
		c := f.Index(column)
		if c < 0 {
			continue
		}
		for _, row := range f.Rows {
			if IsNull(row[c]) {
				row[c] = ""
				continue
			}
			row[c] = strings.ToUpper(strings.TrimSpace(row[c]))
		}
	}
}

// CoerceNumeric blanks every cell of a column that does not parse as a number.
func (f *Frame) CoerceNumeric(column string) error {
	c := f.Index(column)
	if c < 0 {
		return fmt.Errorf("coerce %q: %w", column, ErrUnknownColumn)
	}
	for _, row := range f.Rows {
		if v, ok := parseNumber(row[c]); ok {
			row[c] = strconv.FormatFloat(v, 'f', -1, 64)
		} else {
			row[c] = ""
		}
	}
	return nil
}

// Materialize copies the rows selected by a view into a new frame.
// Views that do not resolve to a Frame are rebuilt from their dimension keys.
func Materialize(view RecordView) *Frame {
	if f, ok := view.(*Frame); ok {
		return f
	}
	columns := view.DimensionKeys()
	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if root, r := rootIndex(view, i); root != nil {
			rows = append(rows, root.Rows[r])
			continue
		}
		row := make([]string, len(columns))
		for c, key := range columns {
			row[c] = view.Dimension(i, key)
		}
		rows = append(rows, row)
	}
	name := ""
	if root, _ := rootIndex(view, 0); root != nil {
		name = root.Name
	}
	return NewFrame(name, columns, rows)
}

// ToTable renders the frame as a list table (one row per record).
func (f *Frame) ToTable(title string) *TableData {
	columns := make([]Column, len(f.Columns))
	for i, c := range f.Columns {
		kind := inferKind(f, c)
		col := Column{Key: c, Label: c, Type: "text", Align: "left"}
		if kind == KindInt || kind == KindFloat {
			col.Type = "number"
			col.Align = "right"
		}
		columns[i] = col
	}
	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		cells := make([]string, len(row))
		for c, cell := range row {
			if !IsNull(cell) {
				cells[c] = cell
			}
		}
		rows[i] = cells
	}
	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("%s filas", FormatInt(len(f.Rows))),
			Values: map[string]string{},
		},
	}
}

// parseNumber accepts plain and thousands-separated numbers.
func parseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if IsNull(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
