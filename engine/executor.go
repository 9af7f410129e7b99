package engine

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR - Dispatcher + Placeholder Resolution
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   1. Apply filters from QuerySpec → SubView
//   2. Group and aggregate (facet → x → series)
//   3. Dispatch to builder (chart / table / text)
//   4. Resolve reply template placeholders
//   5. Return Result
//
// All computation is local. Zero data copy: the engine reads page data
// through RecordView.
// ============================================================================

// Execute runs a QuerySpec against a RecordView and returns a render-ready Result.
//
// Options:
//   - WithDefaultMeasure(key) - sets the measure when QuerySpec.Measure is empty
//   - WithLogger(logger) - debug logging of each pipeline step
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	log := cfg.Logger

	// Resolve which measure to aggregate
	measure := spec.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}

	if view.Len() == 0 {
		return &Result{
			Success: true,
			Type:    "text",
			Title:   spec.Title,
			Reply:   "No hay datos para analizar.",
		}, nil
	}

	log.Debug("🔧 executing query",
		zap.Int("records", view.Len()),
		zap.String("intent", spec.Intent),
		zap.String("visualize", spec.Visualize),
		zap.String("aggregation", spec.Aggregation),
		zap.String("measure", measure))

	// 1. Apply filters → SubView (zero-copy)
	filtered := ApplyFilters(view, spec.Filters)

	if filtered.Len() == 0 {
		return &Result{
			Success: true,
			Type:    "text",
			Title:   spec.Title,
			Reply:   "Ningún registro coincide con los filtros seleccionados.",
		}, nil
	}

	log.Debug("🔧 filtered", zap.Int("kept", filtered.Len()), zap.Int("from", view.Len()))

	// 2. Group and aggregate
	groupBy := spec.GroupBy
	if spec.Facet != "" {
		groupBy = append([]string{spec.Facet}, spec.GroupBy...)
	}
	groups := GroupAndAggregate(filtered, groupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)

	// 3. Dispatch to builder
	result := &Result{
		Success:     true,
		Title:       spec.Title,
		RecordCount: filtered.Len(),
	}

	switch spec.Intent {
	case "chart":
		result.Type = "chart"
		result.ChartConfig = BuildChart(spec, groups)
		if result.ChartConfig.IsEmpty() {
			result.Type = "text"
			result.ChartConfig = nil
			result.Reply = "No hay suficientes datos para generar el gráfico."
			return result, nil
		}

	case "table":
		result.Type = "table"
		result.TableData = BuildTable(spec, groups, filtered, measure)

	default:
		result.Type = "text"
		result.TextData = BuildText(spec, filtered, measure)
	}

	// 4. Resolve reply template placeholders
	result.Reply = ResolvePlaceholders(spec.Reply, groups, filtered, measure)

	return result, nil
}

// ============================================================================
// PLACEHOLDER RESOLUTION
// ============================================================================

// ResolvePlaceholders substitutes computed values into the reply template.
func ResolvePlaceholders(template string, groups []Group, view RecordView, measure string) string {
	if template == "" {
		return buildDefaultReply(view, measure)
	}

	count := view.Len()
	replacements := map[string]string{
		"{count}": FormatInt(count),
	}

	if measure != "" {
		replacements["{total}"] = FormatNumber(SumMeasure(view, measure))
		if count > 0 {
			replacements["{avg}"] = FormatNumber(AvgMeasure(view, measure))
			replacements["{max}"] = FormatNumber(MaxMeasure(view, measure))
			replacements["{min}"] = FormatNumber(MinMeasure(view, measure))
		}
	} else {
		replacements["{total}"] = FormatInt(count)
	}

	// Top group (highest value)
	if len(groups) > 0 {
		topGroup := groups[0]
		for _, g := range groups[1:] {
			if g.Value > topGroup.Value {
				topGroup = g
			}
		}
		replacements["{top_category}"] = topGroup.Label
		replacements["{top_amount}"] = FormatNumber(topGroup.Value)
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Safety net: strip unresolved placeholders
	result = stripUnresolvedPlaceholders(result)
	return result
}

// ============================================================================
// QUERYSPEC NORMALIZATION
// ============================================================================

// NormalizeQuerySpec applies deterministic rules to specs built from widget
// state or loaded from files.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	// Rule 1: "list" aggregation must be a table
	if spec.Aggregation == "list" && spec.Intent != "table" {
		spec.Intent = "table"
		spec.Visualize = "table"
	}

	// Rule 2: Charts must have a groupBy dimension
	if spec.Intent == "chart" && len(spec.GroupBy) == 0 {
		spec.Intent = "text"
		spec.Visualize = "text"
	}

	// Rule 3: max/min with no groupBy → text
	if (spec.Aggregation == "max" || spec.Aggregation == "min") && len(spec.GroupBy) == 0 {
		spec.Intent = "text"
		spec.Visualize = "text"
	}

	// Rule 4: a facet needs something to plot inside each panel
	if spec.Facet != "" && len(spec.GroupBy) == 0 {
		spec.GroupBy = []string{spec.Facet}
		spec.Facet = ""
	}

	return spec
}

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

func buildDefaultReply(view RecordView, measure string) string {
	if view.Len() == 0 {
		return "No se encontraron registros."
	}
	if measure == "" {
		return fmt.Sprintf("%s registros.", FormatInt(view.Len()))
	}
	return fmt.Sprintf("%s registros, total %s.",
		FormatInt(view.Len()), FormatNumber(SumMeasure(view, measure)))
}

var placeholderRegex = regexp.MustCompile(`\{[a-z_]+\}`)

func stripUnresolvedPlaceholders(text string) string {
	cleaned := placeholderRegex.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimRight(cleaned, " .--–")
	if cleaned == "" {
		return text
	}
	return cleaned
}
