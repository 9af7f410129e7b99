package engine

// ============================================================================
// RECORD VIEW - Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns page data. It reads through this interface.
//
// Implementations:
//   Frame    - ordered columns + string cells (CSV, XLSX, melted tables)
//   SubView  - filtered subset (indices into parent, zero-copy)
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Measure in tight loops - keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string // available dimension keys
	MeasureKeys() []string   // available measure keys
}

// MeasureLookup is implemented by views that can tell a null or non-numeric
// cell apart from a zero. Filters and statistics prefer it when present.
type MeasureLookup interface {
	MeasureOK(index int, key string) (float64, bool)
}

// measureOK reads a measure, reporting whether the cell held a number.
func measureOK(view RecordView, i int, key string) (float64, bool) {
	if ml, ok := view.(MeasureLookup); ok {
		return ml.MeasureOK(i, key)
	}
	return view.Measure(i, key), true
}

// ============================================================================
// SUB VIEW - filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent - no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) MeasureOK(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.indices) {
		return 0, false
	}
	return measureOK(v.parent, v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// rootIndex resolves a view row back to the row of the underlying frame.
func rootIndex(view RecordView, i int) (*Frame, int) {
	switch v := view.(type) {
	case *Frame:
		return v, i
	case *SubView:
		if i < 0 || i >= len(v.indices) {
			return nil, -1
		}
		return rootIndex(v.parent, v.indices[i])
	}
	return nil, -1
}
