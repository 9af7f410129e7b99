package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/tablero/engine"
)

// ============================================================================
// AUTO-DISCOVERY - Heuristic Classification
// ============================================================================
// Inspects raw rows (CSV bytes or an already-loaded Frame) and generates a
// schema.Config. No model call needed; Refine can enrich the result later.
//
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + cardinality → classify role (dimension, measure, skip)
//   3. Pattern matching → temporal values, yes/no flags, hierarchies
//   4. Name hints → measure unit and default aggregation
//   5. Synthetic record_count measure
// ============================================================================

var (
	// ErrNoColumns is returned when the input has no header.
	ErrNoColumns = errors.New("dataset has no columns")

	// ErrNoRows is returned when the input has a header but no data rows.
	ErrNoRows = errors.New("dataset has no data rows")
)

// Option configures discovery.
type Option func(*discoverOptions)

type discoverOptions struct {
	sampleSize     int
	recoverColumns []string
	name           string
	now            func() time.Time
}

// WithSampleSize limits how many rows are inspected (0 = all, capped at 100k).
func WithSampleSize(n int) Option {
	return func(o *discoverOptions) { o.sampleSize = n }
}

// WithRecover force-includes columns that would otherwise be skipped.
func WithRecover(columns ...string) Option {
	return func(o *discoverOptions) { o.recoverColumns = append(o.recoverColumns, columns...) }
}

// WithName overrides the dataset name.
func WithName(name string) Option {
	return func(o *discoverOptions) { o.name = name }
}

func applyOptions(opts []Option) discoverOptions {
	o := discoverOptions{sampleSize: 1000, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampleSize <= 0 {
		o.sampleSize = 100000 // safety cap
	}
	return o
}

// DiscoverFromCSV generates a schema.Config by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...Option) (*Config, error) {
	opt := applyOptions(opts)

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff")))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var rows [][]string
	for len(rows) < opt.sampleSize {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	return discover(headers, rows, "CSV", opt)
}

// DiscoverFromFrame classifies the columns of a loaded table.
func DiscoverFromFrame(frame *engine.Frame, opts ...Option) (*Config, error) {
	opt := applyOptions(opts)
	if opt.name == "" {
		opt.name = frame.Name
	}
	rows := frame.Rows
	if len(rows) > opt.sampleSize {
		rows = rows[:opt.sampleSize]
	}
	return discover(frame.Columns, rows, "frame", opt)
}

func discover(headers []string, rows [][]string, source string, opt discoverOptions) (*Config, error) {
	if len(headers) == 0 || (len(headers) == 1 && strings.TrimSpace(headers[0]) == "") {
		return nil, ErrNoColumns
	}
	totalRows := len(rows)
	if totalRows == 0 {
		return nil, ErrNoRows
	}

	// 1. Analyze each column
	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(strings.TrimSpace(header), i, rows, totalRows)
	}

	// 2. Recovery overrides
	recoverSet := make(map[string]bool)
	for _, col := range opt.recoverColumns {
		recoverSet[strings.ToLower(col)] = true
	}

	config := &Config{
		Name:           opt.name,
		Version:        "1.0",
		RowCount:       totalRows,
		DiscoveredFrom: source,
		DiscoveredAt:   opt.now().Format(time.RFC3339),
	}
	if config.Name == "" {
		config.Name = "Conjunto de datos"
	}

	for i := range columns {
		col := &columns[i]
		recovered := recoverSet[strings.ToLower(col.header)] || recoverSet[col.key]

		switch col.role {
		case roleDimension:
			config.Dimensions = append(config.Dimensions, col.toDimension())
		case roleMeasure:
			config.Measures = append(config.Measures, col.toMeasure())
		case roleSkipped:
			if recovered && col.recoverable {
				col.role = roleDimension
				config.Dimensions = append(config.Dimensions, col.toDimension())
				continue
			}
			config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
				Column:      col.header,
				Reason:      col.skipReason,
				Recoverable: col.recoverable,
			})
		}
	}

	// 3. Synthetic record_count measure
	config.Measures = append(config.Measures, MeasureMeta{
		Key:                "record_count",
		DisplayName:        "Cantidad de registros",
		Description:        "Número de registros (generado)",
		Unit:               "count",
		IsSynthetic:        true,
		Aggregations:       []string{"count"},
		DefaultAggregation: "count",
	})

	// 4. Hierarchies
	detectHierarchies(config.Dimensions, rows, columns)

	return config, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

type columnAnalysis struct {
	header      string
	key         string
	index       int
	colType     columnType
	role        columnRole
	skipReason  string
	recoverable bool

	// Stats
	uniqueCount int
	totalCount  int
	nullCount   int
	sampleVals  []string

	isTemporal      bool
	temporalFormat  string
	hasDecimals     bool
	cardinalityHint string
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header string, index int, rows [][]string, totalRows int) columnAnalysis {
	col := columnAnalysis{
		header:     header,
		key:        toSnakeCase(header),
		index:      index,
		totalCount: totalRows,
	}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		if index >= len(row) || engine.IsNull(row[index]) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		values = append(values, val)
		uniqueSet[val] = true
	}

	col.uniqueCount = len(uniqueSet)

	if len(values) == 0 {
		col.role = roleSkipped
		col.skipReason = "Todos los valores están vacíos"
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 10)
	col.colType = detectType(values)

	if col.colType == typeNumeric {
		for _, v := range values {
			if strings.Contains(v, ".") {
				col.hasDecimals = true
				break
			}
		}
	}

	switch col.colType {
	case typeString:
		col.isTemporal, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	case typeDate:
		col.isTemporal = true
	}

	col.classifyRole(totalRows)

	switch {
	case col.uniqueCount <= 10:
		col.cardinalityHint = "low"
	case col.uniqueCount <= 100:
		col.cardinalityHint = "medium"
	default:
		col.cardinalityHint = "high"
	}

	return col
}

// classifyRole determines dimension vs measure vs skip.
func (col *columnAnalysis) classifyRole(totalRows int) {
	switch col.colType {

	case typeNumeric:
		if col.uniqueCount == totalRows && totalRows > 10 && looksLikeID(col.key) {
			col.role = roleSkipped
			col.skipReason = "Valor único por fila: probablemente un identificador"
			return
		}
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		// Few distinct values at a low ratio → coded dimension (e.g. estrato 1-6)
		uniqueRatio := float64(col.uniqueCount) / float64(totalRows)
		if col.uniqueCount < 20 && uniqueRatio < 0.3 {
			col.role = roleDimension
			return
		}
		col.role = roleMeasure

	case typeDate, typeBool:
		col.role = roleDimension

	case typeString:
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "Valor único por fila: probablemente un identificador o texto libre"
			col.recoverable = true
			return
		}
		if col.uniqueCount > totalRows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("Cardinalidad alta (%d valores distintos)", col.uniqueCount)
			col.recoverable = true
			return
		}
		col.role = roleDimension
	}
}

var idNames = regexp.MustCompile(`(^|_)(id|codigo|code|key|nro|numero)($|_)`)

func looksLikeID(key string) bool {
	return idNames.MatchString(key)
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) columnType {
	if len(values) == 0 {
		return typeString
	}

	numCount, dateCount, boolCount := 0, 0, 0
	for _, v := range values {
		if isNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)

	switch {
	case boolCount >= threshold && !allNumeric(numCount, values):
		return typeBool
	case dateCount >= threshold && numCount < threshold:
		return typeDate
	case numCount >= threshold:
		return typeNumeric
	}
	return typeString
}

// allNumeric keeps 0/1 columns numeric; they are more often counts than flags.
func allNumeric(numCount int, values []string) bool {
	return numCount == len(values)
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "-")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no", "si", "sí", "1", "0":
		return true
	}
	return false
}

// ============================================================================
// SPECIAL PATTERN DETECTION
// ============================================================================

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"},                                           // Jan-2026
	{regexp.MustCompile(`(?i)^(ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)-\d{4}$`), "mmm-yyyy"}, // ene-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},                                                   // 2026-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},                                                  // Q1-2026
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},                                                // Q1 2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},                                           // January 2026
}

// detectTemporalPattern checks if values match known month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}

	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}

	return false, ""
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of dimension B maps to exactly one value of dimension A,
// and A has fewer unique values, then A is parent of B.
// When multiple valid parents exist, picks the closest (highest cardinality).
func detectHierarchies(dimensions []DimensionMeta, rows [][]string, columns []columnAnalysis) {
	dimIndices := make(map[string]int)
	dimUniques := make(map[string]int)
	for _, col := range columns {
		if col.role == roleDimension {
			dimIndices[col.key] = col.index
			dimUniques[col.key] = col.uniqueCount
		}
	}

	for i := range dimensions {
		childKey := dimensions[i].Key
		childIdx, ok := dimIndices[childKey]
		if !ok || dimensions[i].IsFlag {
			continue
		}

		bestParent := ""
		bestParentUniques := 0

		for j := range dimensions {
			parentKey := dimensions[j].Key
			parentIdx, ok := dimIndices[parentKey]
			if i == j || !ok || dimensions[j].IsFlag {
				continue
			}
			if dimUniques[parentKey] >= dimUniques[childKey] {
				continue
			}
			if isFunctionOf(rows, childIdx, parentIdx) && dimUniques[parentKey] > bestParentUniques {
				bestParent = parentKey
				bestParentUniques = dimUniques[parentKey]
			}
		}

		dimensions[i].Parent = bestParent
	}
}

// isFunctionOf reports whether each child value maps to a single parent value.
func isFunctionOf(rows [][]string, childIdx, parentIdx int) bool {
	childToParent := make(map[string]string)
	for _, row := range rows {
		if childIdx >= len(row) || parentIdx >= len(row) {
			continue
		}
		child := strings.TrimSpace(row[childIdx])
		parent := strings.TrimSpace(row[parentIdx])
		if engine.IsNull(child) || engine.IsNull(parent) {
			continue
		}
		if existing, ok := childToParent[child]; ok && existing != parent {
			return false
		}
		childToParent[child] = parent
	}
	return len(childToParent) > 1
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

func (col *columnAnalysis) toDimension() DimensionMeta {
	return DimensionMeta{
		Key:             col.key,
		Column:          col.header,
		DisplayName:     toDisplayName(col.header),
		SampleValues:    col.sampleVals,
		Groupable:       true,
		Filterable:      true,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
		IsFlag:          col.colType == typeBool,
		CardinalityHint: col.cardinalityHint,
	}
}

func (col *columnAnalysis) toMeasure() MeasureMeta {
	unit, agg := measureHints(col.key)
	return MeasureMeta{
		Key:                col.key,
		Column:             col.header,
		DisplayName:        toDisplayName(col.header),
		Unit:               unit,
		Aggregations:       []string{"sum", "avg", "min", "max", "count"},
		DefaultAggregation: agg,
	}
}

var unitHints = []struct {
	re   *regexp.Regexp
	unit string
	agg  string
}{
	{regexp.MustCompile(`edad|age|anios|años`), "years", "avg"},
	{regexp.MustCompile(`porcentaje|percent|pct|tasa|rate`), "percent", "avg"},
	{regexp.MustCompile(`horas|hours|hrs`), "hours", "sum"},
	{regexp.MustCompile(`precio|price|monto|amount|valor|costo|cost|salario|salary`), "currency", "sum"},
	{regexp.MustCompile(`total|cantidad|count|procesos|numero|num_`), "count", "sum"},
	{regexp.MustCompile(`nota|score|puntaje|calificacion`), "points", "avg"},
}

// measureHints infers a unit and default aggregation from the column name.
func measureHints(key string) (unit, aggregation string) {
	for _, h := range unitHints {
		if h.re.MatchString(key) {
			return h.unit, h.agg
		}
	}
	return "", "sum"
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	var prev rune
	for i, r := range strings.TrimSpace(s) {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			result.WriteRune('_')
		}
		switch {
		case r == ' ' || r == '-' || r == '.':
			result.WriteRune('_')
		default:
			result.WriteRune(unicode.ToLower(r))
		}
		prev = r
	}

	out := result.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// toDisplayName cleans a header for human display.
// "TOTAL_PROCESOS" → "Total Procesos", "edad" → "Edad"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples values in sorted order.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
