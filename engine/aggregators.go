package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ============================================================================
// AGGREGATORS - Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// All functions operate on RecordView - zero-copy access to any data source.
// Grouping produces SubViews (index lists into parent view).
// ============================================================================

// GroupAndAggregate is the main entry point for the aggregation pipeline.
// Pipeline: group → aggregate → sort → limit.
// Records whose group key is null are dropped, as a pandas groupby does.
func GroupAndAggregate(
	view RecordView,
	groupBy []string,
	measure string,
	aggregation string,
	sortBy string,
	limit int,
) []Group {
	if view.Len() == 0 {
		return nil
	}

	// 1. Group
	var groups []Group
	if len(groupBy) == 0 {
		groups = []Group{{
			Key:   "all",
			Label: "Total",
			View:  view,
		}}
	} else {
		groups = groupByMulti(view, groupBy)
	}

	// 2. Aggregate
	aggregateAll(groups, measure, aggregation)

	// 3. Sort
	SortGroups(groups, sortBy)

	// 4. Limit
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups
}

func aggregateAll(groups []Group, measure, aggregation string) {
	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
		aggregateAll(groups[i].SubGroups, measure, aggregation)
	}
}

// ============================================================================
// GROUPING
// ============================================================================

func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if key == "" {
			continue
		}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func groupByMulti(view RecordView, dimensions []string) []Group {
	groups := groupBySingle(view, dimensions[0])
	if len(dimensions) == 1 {
		return groups
	}
	kept := groups[:0]
	for i := range groups {
		groups[i].SubGroups = groupByMulti(groups[i].View, dimensions[1:])
		// A primary group whose rows all have null sub-keys has nothing to show.
		if len(groups[i].SubGroups) > 0 {
			groups[i].View = subGroupsView(groups[i])
			kept = append(kept, groups[i])
		}
	}
	return kept
}

// subGroupsView narrows a group's view to the rows its subgroups kept, so
// counts at every level agree after null sub-keys are dropped.
// Subgroup views always index into g.View, since deeper levels were
// narrowed the same way on the way back up.
func subGroupsView(g Group) RecordView {
	sub, ok := g.View.(*SubView)
	if !ok {
		return g.View
	}
	keep := make(map[int]bool)
	for _, sg := range g.SubGroups {
		if sv, ok := sg.View.(*SubView); ok {
			for _, idx := range sv.indices {
				keep[idx] = true
			}
		}
	}

	indices := make([]int, 0, len(keep))
	for i := range sub.indices {
		if keep[i] {
			indices = append(indices, sub.indices[i])
		}
	}
	return newSubView(sub.parent, indices)
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}

	switch aggregation {
	case "sum":
		group.Value = SumMeasure(group.View, measure)
	case "count":
		group.Value = float64(group.Count)
	case "avg":
		group.Value = AvgMeasure(group.View, measure)
	case "max":
		group.Value = MaxMeasure(group.View, measure)
	case "min":
		group.Value = MinMeasure(group.View, measure)
	case "list":
		group.Value = float64(group.Count) // for sorting
	case "none":
		// pass through
	default:
		group.Value = float64(group.Count)
	}
}

// SumMeasure sums a named measure across a view. Null cells are skipped.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v, ok := measureOK(view, i, measure); ok {
			total += v
		}
	}
	return total
}

// AvgMeasure computes the average of a named measure over its non-null cells.
func AvgMeasure(view RecordView, measure string) float64 {
	var total float64
	n := 0
	for i := 0; i < view.Len(); i++ {
		if v, ok := measureOK(view, i, measure); ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// MaxMeasure returns the largest value of a named measure.
func MaxMeasure(view RecordView, measure string) float64 {
	m, found := math.Inf(-1), false
	for i := 0; i < view.Len(); i++ {
		if v, ok := measureOK(view, i, measure); ok && (!found || v > m) {
			m, found = v, true
		}
	}
	if !found {
		return 0
	}
	return m
}

// MinMeasure returns the smallest value of a named measure.
func MinMeasure(view RecordView, measure string) float64 {
	m, found := math.Inf(1), false
	for i := 0; i < view.Len(); i++ {
		if v, ok := measureOK(view, i, measure); ok && (!found || v < m) {
			m, found = v, true
		}
	}
	if !found {
		return 0
	}
	return m
}

// MeasureBounds returns the integer-truncated min and max of a numeric
// column, the bounds a range slider over it needs. ok is false when the
// column holds no numbers.
func MeasureBounds(view RecordView, measure string) (lo, hi int, ok bool) {
	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := 0; i < view.Len(); i++ {
		v, valid := measureOK(view, i, measure)
		if !valid {
			continue
		}
		ok = true
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if !ok {
		return 0, 0, false
	}
	return int(minV), int(maxV), true
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts aggregate groups by the specified sort mode, at every
// nesting level. Sorting is stable so equal values keep their first-seen order.
func SortGroups(groups []Group, sortBy string) {
	for i := range groups {
		SortGroups(groups[i].SubGroups, sortBy)
	}

	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "date_asc":
		sort.SliceStable(groups, func(i, j int) bool { return parseSortableDate(groups[i].Key) < parseSortableDate(groups[j].Key) })
	case "date_desc":
		sort.SliceStable(groups, func(i, j int) bool { return parseSortableDate(groups[i].Key) > parseSortableDate(groups[j].Key) })
	case "alpha_asc", "label_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	case "label_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key > groups[j].Key })
	default:
		// preserve grouping order
	}
}

var sortableDateFormats = []string{"2006-01-02", "2006-01", "Jan-2006", "01/02/2006", "2006"}

func parseSortableDate(key string) int64 {
	for _, layout := range sortableDateFormats {
		if t, err := time.Parse(layout, key); err == nil {
			return t.Unix()
		}
	}
	return math.MinInt64
}

// ============================================================================
// DISTINCT VALUES
// ============================================================================

// UniqueValues returns distinct non-null values for a dimension, first-seen order.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, dimension)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// SortedUniqueValues returns UniqueValues in ascending order.
func SortedUniqueValues(view RecordView, dimension string) []string {
	vals := UniqueValues(view, dimension)
	sort.Strings(vals)
	return vals
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats a value with comma separators and two decimals.
// Whole numbers drop the decimals.
func FormatNumber(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	rounded := math.Round(amount*100) / 100
	intPart := int64(rounded)
	decPart := int64(math.Round((rounded - float64(intPart)) * 100))

	result := FormatInt(int(intPart))
	if decPart != 0 {
		result = fmt.Sprintf("%s.%02d", result, decPart)
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForDimension returns the display label for a dimension, preferring
// explicit labels and falling back to a capitalized key.
func LabelForDimension(dimension string, labels Labels) string {
	if l, ok := labels[dimension]; ok && l != "" {
		return l
	}
	if len(dimension) == 0 {
		return ""
	}
	return strings.ToUpper(dimension[:1]) + dimension[1:]
}

// LabelForAggregation returns a human-readable label for an aggregation type.
func LabelForAggregation(aggregation string) string {
	switch aggregation {
	case "sum":
		return "Total"
	case "count":
		return "Cantidad"
	case "avg":
		return "Promedio"
	case "max":
		return "Máximo"
	case "min":
		return "Mínimo"
	default:
		return "Valor"
	}
}
