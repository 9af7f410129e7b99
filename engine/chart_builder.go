package engine

import "sort"

// ============================================================================
// CHART BUILDER - Produces ChartConfig from QuerySpec + Groups
// ============================================================================
// Group shapes by QuerySpec:
//   GroupBy [x]                 → one series
//   GroupBy [x, series]         → one series per sub-key (grouped bars)
//   Facet + GroupBy [x, series] → groups nest facet → x → series, one panel each
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildChart produces a ChartConfig from a QuerySpec and aggregated groups.
func BuildChart(spec QuerySpec, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	chartType := spec.Visualize
	if chartType == "" {
		chartType = "bar"
	}

	config := &ChartConfig{
		ChartType:  chartType,
		Title:      spec.Title,
		ShowLegend: true,
		ShowGrid:   chartType != "pie",
	}

	if len(spec.GroupBy) > 0 {
		config.XAxis = LabelForDimension(spec.GroupBy[0], spec.Labels)
	}
	config.YAxis = LabelForAggregation(spec.Aggregation)
	if l := spec.Labels["value"]; l != "" {
		config.YAxis = l
	}

	if chartType == "pie" {
		config.Hole = spec.Hole
		config.Series = buildSingleSeries(groups, spec.Title)
		config.Colors = assignColors(len(config.Series[0].Data))
		return config
	}

	switch {
	case spec.Facet != "":
		config.Facet = LabelForDimension(spec.Facet, spec.Labels)
		config.BarMode = "group"
		if len(spec.GroupBy) >= 2 {
			config.Legend = LabelForDimension(spec.GroupBy[1], spec.Labels)
		}
		config.Panels = buildPanels(groups, spec.Title)
		config.Colors = assignColors(countSeriesNames(config.Panels))
		return config

	case len(spec.GroupBy) >= 2 && hasSubGroups(groups):
		config.BarMode = "group"
		config.Legend = LabelForDimension(spec.GroupBy[1], spec.Labels)
		config.Series = buildMultiSeries(groups, seriesKeys(groups))

	default:
		config.Series = buildSingleSeries(groups, spec.Title)
	}

	config.Colors = assignColors(len(config.Series))
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Valor"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

// seriesKeys returns the sorted set of sub-group keys, so series order and
// colors do not depend on which x value happened to come first.
func seriesKeys(groups []Group) []string {
	set := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			set[sg.Key] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildMultiSeries emits one series per sub-key with a point for every x
// group; missing combinations are zero so all series share the x axis.
func buildMultiSeries(groups []Group, subKeys []string) []ChartSeries {
	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		points := make([]ChartPoint, 0, len(groups))
		for _, g := range groups {
			var value float64
			for _, sg := range g.SubGroups {
				if sg.Key == key {
					value = sg.Value
					break
				}
			}
			points = append(points, ChartPoint{Label: g.Label, Value: RoundTo2(value)})
		}
		series = append(series, ChartSeries{
			Name:  key,
			Data:  points,
			Color: defaultColors[i%len(defaultColors)],
		})
	}
	return series
}

// buildPanels turns facet → x → series groups into one panel per facet.
// Series keys and colors are shared across panels.
func buildPanels(facets []Group, title string) []ChartPanel {
	var all []Group
	for _, f := range facets {
		all = append(all, f.SubGroups...)
	}
	keys := seriesKeys(all)

	panels := make([]ChartPanel, 0, len(facets))
	for _, f := range facets {
		panel := ChartPanel{Title: f.Label}
		if len(keys) > 0 {
			panel.Series = buildMultiSeries(f.SubGroups, keys)
		} else {
			panel.Series = buildSingleSeries(f.SubGroups, title)
		}
		panels = append(panels, panel)
	}
	return panels
}

func countSeriesNames(panels []ChartPanel) int {
	names := make(map[string]bool)
	for _, p := range panels {
		for _, s := range p.Series {
			names[s.Name] = true
		}
	}
	return len(names)
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
