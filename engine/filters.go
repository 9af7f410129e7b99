package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// FILTERS - Dimension and Range Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL constraints per record in one loop.
// Returns a SubView (index list into parent) - zero data copy.
// ============================================================================

// ApplyFilters returns a view of records matching all filters.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// Ranges are inclusive and never match null or non-numeric cells.
// In non-strict mode an empty value list is no restriction; in strict mode
// it matches nothing and null cells never match.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	// Pre-build lowercase lookup sets for each dimension filter
	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 || filters.Strict {
			sets[dim] = toLowerSet(allowed)
		}
	}

	if len(sets) == 0 && len(filters.Ranges) == 0 {
		return view
	}

	// Single pass - record passes if it matches ALL filters
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if matchesDimensions(view, i, sets, filters.Strict) && matchesRanges(view, i, filters.Ranges) {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

func matchesDimensions(view RecordView, i int, sets map[string]map[string]bool, strict bool) bool {
	for dim, set := range sets {
		raw := view.Dimension(i, dim)
		if strict && raw == "" {
			return false
		}
		if !set[strings.ToLower(raw)] {
			return false
		}
	}
	return true
}

func matchesRanges(view RecordView, i int, ranges map[string]Range) bool {
	for key, r := range ranges {
		v, ok := measureOK(view, i, key)
		if !ok || !r.Contains(v) {
			return false
		}
	}
	return true
}

// Comparison operators accepted by FilterMeasure.
const (
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpEqual        = "=="
)

// FilterMeasure keeps records whose numeric column satisfies `value op threshold`.
// Null and non-numeric cells never match.
func FilterMeasure(view RecordView, key, op string, threshold float64) (RecordView, error) {
	var cmp func(v float64) bool
	switch op {
	case OpGreater:
		cmp = func(v float64) bool { return v > threshold }
	case OpGreaterEqual:
		cmp = func(v float64) bool { return v >= threshold }
	case OpLess:
		cmp = func(v float64) bool { return v < threshold }
	case OpLessEqual:
		cmp = func(v float64) bool { return v <= threshold }
	case OpEqual:
		cmp = func(v float64) bool { return v == threshold }
	default:
		return nil, fmt.Errorf("unsupported comparison %q", op)
	}

	indices := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if v, ok := measureOK(view, i, key); ok && cmp(v) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices), nil
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
