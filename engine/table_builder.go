package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER - Produces TableData from QuerySpec + Groups
// ============================================================================
// All functions operate on RecordView - zero-copy access to any data source.
// Column discovery uses view.DimensionKeys(); list tables show every column.
// ============================================================================

// BuildTable produces a TableData from a QuerySpec, groups and the filtered view.
func BuildTable(spec QuerySpec, groups []Group, view RecordView, measure string) *TableData {
	if spec.Aggregation == "list" {
		return buildListTable(spec, view)
	}
	return buildAggregatedTable(spec, groups, measure)
}

// ============================================================================
// LIST TABLE - Row per record
// ============================================================================

func buildListTable(spec QuerySpec, view RecordView) *TableData {
	if view.Len() == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}
	return Materialize(view).ToTable(spec.Title)
}

// ============================================================================
// AGGREGATED TABLE - Summary rows
// ============================================================================

func buildAggregatedTable(spec QuerySpec, groups []Group, measure string) *TableData {
	if len(groups) == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	groupLabel := "Grupo"
	if len(spec.GroupBy) > 0 {
		groupLabel = LabelForDimension(spec.GroupBy[0], spec.Labels)
	}
	valueLabel := LabelForAggregation(spec.Aggregation)
	if measure != "" && spec.Aggregation != "count" {
		valueLabel = fmt.Sprintf("%s (%s)", valueLabel, LabelForDimension(measure, spec.Labels))
	}

	columns := []Column{
		{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
		{Key: "value", Label: valueLabel, Type: "number", Align: "right"},
		{Key: "count", Label: "Registros", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(groups))
	var totalValue float64
	var totalCount int

	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			FormatNumber(g.Value),
			strconv.Itoa(g.Count),
		})
		totalValue += g.Value
		totalCount += g.Count
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": FormatNumber(totalValue),
				"count": FormatInt(totalCount),
			},
		},
	}
}
