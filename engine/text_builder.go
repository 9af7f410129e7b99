package engine

// ============================================================================
// TEXT BUILDER - Produces TextData for simple queries
// ============================================================================

// BuildText produces a single-value answer from the filtered records.
func BuildText(spec QuerySpec, view RecordView, measure string) *TextData {
	if view.Len() == 0 {
		return &TextData{Value: "0"}
	}

	var value float64
	switch spec.Aggregation {
	case "sum":
		value = SumMeasure(view, measure)
	case "count":
		value = float64(view.Len())
	case "avg":
		value = AvgMeasure(view, measure)
	case "max":
		value = MaxMeasure(view, measure)
	case "min":
		value = MinMeasure(view, measure)
	default:
		value = float64(view.Len())
	}

	formatted := FormatNumber(value)
	if spec.Aggregation == "count" || spec.Aggregation == "" {
		formatted = FormatInt(int(value))
	}

	return &TextData{
		Value:    formatted,
		RawValue: value,
		Count:    view.Len(),
	}
}
