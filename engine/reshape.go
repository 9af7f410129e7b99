package engine

import "fmt"

// ============================================================================
// RESHAPE - Wide → long and value counts
// ============================================================================

// Melt unpivots valueVars into (varName, valueName) pairs, keeping idVars on
// every output row. Rows come out grouped by value variable, then by source
// row, so the long table reads the way pandas melt lays it out.
func Melt(view RecordView, idVars, valueVars []string, varName, valueName string) (*Frame, error) {
	known := make(map[string]bool)
	for _, k := range view.DimensionKeys() {
		known[k] = true
	}
	for _, k := range append(append([]string{}, idVars...), valueVars...) {
		if !known[k] {
			return nil, fmt.Errorf("melt %q: %w", k, ErrUnknownColumn)
		}
	}

	columns := append(append([]string{}, idVars...), varName, valueName)
	rows := make([][]string, 0, view.Len()*len(valueVars))
	for _, v := range valueVars {
		for i := 0; i < view.Len(); i++ {
			row := make([]string, 0, len(columns))
			for _, id := range idVars {
				row = append(row, view.Dimension(i, id))
			}
			row = append(row, v, view.Dimension(i, v))
			rows = append(rows, row)
		}
	}

	name := ""
	if root, _ := rootIndex(view, 0); root != nil {
		name = root.Name
	}
	return NewFrame(name, columns, rows), nil
}

// ValueCount is the number of records holding one dimension value.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts records per non-null value of a dimension, most frequent
// first. Ties keep first-seen order.
func ValueCounts(view RecordView, dimension string) []ValueCount {
	groups := GroupAndAggregate(view, []string{dimension}, "", "count", "value_desc", 0)
	out := make([]ValueCount, len(groups))
	for i, g := range groups {
		out[i] = ValueCount{Value: g.Key, Count: g.Count}
	}
	return out
}
