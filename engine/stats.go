package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// STATS - Column typing, info and describe summaries
// ============================================================================
// Kinds follow the dtypes a pandas CSV load would produce, so the summaries
// read the same as the notebook pages they replace:
//   int64   - every cell an integer, no nulls
//   float64 - every non-null cell a number (ints with nulls widen to float)
//   bool    - every cell true/false, no nulls
//   object  - anything else
// ============================================================================

// Column kinds reported by Info.
const (
	KindInt    = "int64"
	KindFloat  = "float64"
	KindBool   = "bool"
	KindObject = "object"
)

// inferKind classifies one column of a frame.
func inferKind(f *Frame, column string) string {
	c := f.Index(column)
	if c < 0 {
		return KindObject
	}

	nonNull, ints, floats, bools := 0, 0, 0, 0
	for _, row := range f.Rows {
		cell := strings.TrimSpace(row[c])
		if IsNull(cell) {
			continue
		}
		nonNull++
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			ints++
			floats++
			continue
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsInf(v, 0) {
			floats++
			continue
		}
		switch strings.ToLower(cell) {
		case "true", "false":
			bools++
		}
	}

	hasNulls := nonNull < len(f.Rows)
	switch {
	case nonNull == 0:
		return KindFloat
	case ints == nonNull && !hasNulls:
		return KindInt
	case floats == nonNull:
		return KindFloat
	case bools == nonNull && !hasNulls:
		return KindBool
	default:
		return KindObject
	}
}

// ============================================================================
// INFO
// ============================================================================

// ColumnInfo describes one column of a frame.
type ColumnInfo struct {
	Name    string `json:"name"`
	NonNull int    `json:"nonNull"`
	Dtype   string `json:"dtype"`
}

// FrameInfo is the structural summary of a frame.
type FrameInfo struct {
	Name        string       `json:"name"`
	Rows        int          `json:"rows"`
	Columns     []ColumnInfo `json:"columns"`
	MemoryBytes int          `json:"memoryBytes"`
}

// Info summarizes row count, per-column non-null counts and inferred dtypes.
func Info(f *Frame) *FrameInfo {
	info := &FrameInfo{
		Name:    f.Name,
		Rows:    len(f.Rows),
		Columns: make([]ColumnInfo, 0, len(f.Columns)),
	}

	for c, name := range f.Columns {
		nonNull := 0
		for _, row := range f.Rows {
			if !IsNull(row[c]) {
				nonNull++
			}
			info.MemoryBytes += len(row[c])
		}
		info.MemoryBytes += len(name)
		info.Columns = append(info.Columns, ColumnInfo{
			Name:    name,
			NonNull: nonNull,
			Dtype:   inferKind(f, name),
		})
	}
	// string headers: pointer + length per cell
	info.MemoryBytes += 16 * len(f.Rows) * len(f.Columns)

	return info
}

// ToTable renders the info summary as one row per column.
func (fi *FrameInfo) ToTable(title string) *TableData {
	rows := make([][]string, len(fi.Columns))
	for i, c := range fi.Columns {
		rows[i] = []string{strconv.Itoa(i), c.Name, strconv.Itoa(c.NonNull), c.Dtype}
	}
	return &TableData{
		Title: title,
		Columns: []Column{
			{Key: "#", Label: "#", Type: "number", Align: "right"},
			{Key: "column", Label: "Columna", Type: "text", Align: "left"},
			{Key: "non_null", Label: "No nulos", Type: "number", Align: "right"},
			{Key: "dtype", Label: "Tipo", Type: "text", Align: "left"},
		},
		Rows: rows,
		Summary: &Summary{
			Label: fmt.Sprintf("%s filas, %d columnas", FormatInt(fi.Rows), len(fi.Columns)),
			Values: map[string]string{
				"memory": fmt.Sprintf("%s bytes", FormatInt(fi.MemoryBytes)),
			},
		},
	}
}

// ============================================================================
// DESCRIBE
// ============================================================================

// describeStats lists the rows of a describe table, in order.
var describeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// ColumnStats holds the describe statistics of one numeric column.
// Std is NaN when fewer than two values are present.
type ColumnStats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

func (s ColumnStats) values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

// Describe computes count, mean, sample std, min, quartiles and max for every
// numeric column. Frames with no numeric column return ErrNoNumericColumns.
func Describe(f *Frame) ([]ColumnStats, error) {
	var out []ColumnStats
	for _, column := range f.MeasureKeys() {
		values := make([]float64, 0, len(f.Rows))
		for i := range f.Rows {
			if v, ok := f.MeasureOK(i, column); ok {
				values = append(values, v)
			}
		}
		out = append(out, describeColumn(column, values))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("describe %q: %w", f.Name, ErrNoNumericColumns)
	}
	return out, nil
}

func describeColumn(column string, values []float64) ColumnStats {
	stats := ColumnStats{Column: column, Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		stats.Mean, stats.Std, stats.Min, stats.Q25, stats.Q50, stats.Q75, stats.Max = nan, nan, nan, nan, nan, nan, nan
		return stats
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	stats.Mean = sum / float64(len(sorted))

	stats.Std = math.NaN()
	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			d := v - stats.Mean
			sq += d * d
		}
		stats.Std = math.Sqrt(sq / float64(len(sorted)-1))
	}

	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.Q25 = quantile(sorted, 0.25)
	stats.Q50 = quantile(sorted, 0.50)
	stats.Q75 = quantile(sorted, 0.75)
	return stats
}

// quantile uses linear interpolation between closest ranks. sorted must be non-empty.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// DescribeTable lays describe statistics out with one row per statistic and
// one column per numeric column.
func DescribeTable(title string, stats []ColumnStats) *TableData {
	columns := []Column{{Key: "stat", Label: "", Type: "text", Align: "left"}}
	for _, s := range stats {
		columns = append(columns, Column{Key: s.Column, Label: s.Column, Type: "number", Align: "right"})
	}

	rows := make([][]string, len(describeStats))
	for r, name := range describeStats {
		row := []string{name}
		for _, s := range stats {
			row = append(row, formatStat(s.values()[r]))
		}
		rows[r] = row
	}

	return &TableData{Title: title, Columns: columns, Rows: rows}
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(RoundTo2(v), 'f', -1, 64)
}
