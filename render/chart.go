// Package render turns engine output into images, terminal tables and HTML.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/spektr-org/tablero/engine"
)

// ============================================================================
// CHART RENDERER - ChartConfig → PNG / SVG
// ============================================================================
// single series       → bar chart
// grouped / faceted   → stacked bars, one bar per x label (per panel)
// pie (Hole == 0)     → pie chart
// pie (0 < Hole < 1)  → donut chart
// Series colors follow ChartConfig.Colors in order.
// ============================================================================

// Format is an image format for RenderChart.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

var (
	// ErrEmptyChart is returned for a chart with no points.
	ErrEmptyChart = errors.New("chart has no data")

	// ErrUnsupportedFormat is returned for formats other than png and svg.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

const (
	chartHeight = 480
	minWidth    = 640
	barSlot     = 80
)

// ParseFormat accepts "png" or "svg"; empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of a format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// RenderChart draws cfg to w.
func RenderChart(cfg *engine.ChartConfig, format Format, w io.Writer) error {
	if cfg.IsEmpty() {
		return ErrEmptyChart
	}

	provider, err := rendererFor(format)
	if err != nil {
		return err
	}

	switch {
	case cfg.ChartType == "pie":
		return renderPie(cfg, provider, w)
	case len(cfg.Panels) > 0:
		return renderStacked(cfg, facetBars(cfg), provider, w)
	case len(cfg.Series) > 1:
		return renderStacked(cfg, groupedBars(cfg.Series, ""), provider, w)
	default:
		return renderBars(cfg, provider, w)
	}
}

func rendererFor(format Format) (chart.RendererProvider, error) {
	switch format {
	case FormatPNG, "":
		return chart.PNG, nil
	case FormatSVG:
		return chart.SVG, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func renderBars(cfg *engine.ChartConfig, provider chart.RendererProvider, w io.Writer) error {
	series := cfg.Series[0]
	color := colorAt(cfg.Colors, 0)
	if series.Color != "" {
		color = hexColor(series.Color)
	}

	bars := make([]chart.Value, len(series.Data))
	maxValue := 0.0
	for i, p := range series.Data {
		if p.Value > maxValue {
			maxValue = p.Value
		}
		bars[i] = chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		}
	}

	bc := chart.BarChart{
		Title:      title(cfg),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      widthFor(len(bars)),
		Height:     chartHeight,
		BarWidth:   48,
		Bars:       bars,
		// Bars start at zero; a range derived from equal values would be empty.
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxValue)}},
	}
	if err := bc.Render(provider, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func axisMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func renderStacked(cfg *engine.ChartConfig, bars []chart.StackedBar, provider chart.RendererProvider, w io.Writer) error {
	sbc := chart.StackedBarChart{
		Title:      title(cfg),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      widthFor(len(bars)),
		Height:     chartHeight,
		BarSpacing: 24,
		Bars:       bars,
	}
	if err := sbc.Render(provider, w); err != nil {
		return fmt.Errorf("render stacked bar chart: %w", err)
	}
	return nil
}

func renderPie(cfg *engine.ChartConfig, provider chart.RendererProvider, w io.Writer) error {
	series := cfg.Series[0]
	values := make([]chart.Value, 0, len(series.Data))
	for i, p := range series.Data {
		if p.Value <= 0 {
			continue
		}
		color := colorAt(cfg.Colors, i)
		values = append(values, chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: chart.Style{FillColor: color, StrokeColor: drawing.ColorWhite},
		})
	}
	if len(values) == 0 {
		return ErrEmptyChart
	}

	var err error
	if cfg.Hole > 0 && cfg.Hole < 1 {
		dc := chart.DonutChart{
			Title:  title(cfg),
			Width:  chartHeight,
			Height: chartHeight,
			Values: values,
		}
		err = dc.Render(provider, w)
	} else {
		pc := chart.PieChart{
			Title:  title(cfg),
			Width:  chartHeight,
			Height: chartHeight,
			Values: values,
		}
		err = pc.Render(provider, w)
	}
	if err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// groupedBars builds one stacked bar per x label with one segment per series.
func groupedBars(series []engine.ChartSeries, prefix string) []chart.StackedBar {
	var labels []string
	seen := make(map[string]bool)
	for _, s := range series {
		for _, p := range s.Data {
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
	}

	bars := make([]chart.StackedBar, len(labels))
	for i, label := range labels {
		name := label
		if prefix != "" {
			name = prefix + " · " + label
		}
		bar := chart.StackedBar{Name: name, Width: 48}
		for _, s := range series {
			for _, p := range s.Data {
				if p.Label == label && p.Value > 0 {
					color := hexColor(s.Color)
					bar.Values = append(bar.Values, chart.Value{
						Label: s.Name,
						Value: p.Value,
						Style: chart.Style{FillColor: color, StrokeColor: color},
					})
				}
			}
		}
		bars[i] = bar
	}
	return bars
}

func facetBars(cfg *engine.ChartConfig) []chart.StackedBar {
	var bars []chart.StackedBar
	for _, panel := range cfg.Panels {
		bars = append(bars, groupedBars(panel.Series, panel.Title)...)
	}
	return bars
}

func title(cfg *engine.ChartConfig) string {
	return cfg.Title
}

func widthFor(bars int) int {
	if w := bars * barSlot; w > minWidth {
		return w
	}
	return minWidth
}

var fallbackPalette = []string{"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6"}

func colorAt(colors []string, i int) drawing.Color {
	if len(colors) == 0 {
		colors = fallbackPalette
	}
	return hexColor(colors[i%len(colors)])
}

func hexColor(hex string) drawing.Color {
	if hex == "" {
		return hexColor(fallbackPalette[0])
	}
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
