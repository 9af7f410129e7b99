package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/spektr-org/tablero/engine"
)

// SetColor turns ANSI colors on or off for everything this package prints.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// WriteTable prints a table with its title above and summary below.
func WriteTable(w io.Writer, table *engine.TableData) {
	if table.Title != "" {
		color.New(color.FgCyan, color.Bold).Fprintln(w, table.Title)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(table.Headers())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	aligns := make([]int, len(table.Columns))
	for i, c := range table.Columns {
		aligns[i] = tablewriter.ALIGN_LEFT
		if c.Align == "right" {
			aligns[i] = tablewriter.ALIGN_RIGHT
		}
	}
	tw.SetColumnAlignment(aligns)

	tw.AppendBulk(table.Rows)
	tw.Render()

	if table.Summary != nil {
		writeSummary(w, table.Summary)
	}
}

// WriteHeading prints a section heading.
func WriteHeading(w io.Writer, heading string) {
	color.New(color.FgYellow, color.Bold).Fprintf(w, "\n%s\n", heading)
}

// WriteNotice prints an informational or warning line.
func WriteNotice(w io.Writer, level, text string) {
	c := color.New(color.FgBlue)
	if level == "warning" {
		c = color.New(color.FgYellow)
	}
	c.Fprintln(w, text)
}

// WriteChartSummary prints a chart's data as plain lines, for terminals.
func WriteChartSummary(w io.Writer, cfg *engine.ChartConfig) {
	if cfg == nil {
		return
	}
	dim := color.New(color.Faint)
	color.New(color.FgCyan, color.Bold).Fprintln(w, cfg.Title)
	for _, panel := range cfg.Panels {
		fmt.Fprintf(w, "[%s]\n", panel.Title)
		writeSeries(w, dim, panel.Series)
	}
	writeSeries(w, dim, cfg.Series)
}

func writeSeries(w io.Writer, dim *color.Color, series []engine.ChartSeries) {
	for _, s := range series {
		dim.Fprintf(w, "  %s\n", s.Name)
		for _, p := range s.Data {
			fmt.Fprintf(w, "    %-30s %s\n", p.Label, engine.FormatNumber(p.Value))
		}
	}
}

func writeSummary(w io.Writer, s *engine.Summary) {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := s.Label
	for _, k := range keys {
		line += fmt.Sprintf("  %s: %s", k, s.Values[k])
	}
	color.New(color.Faint).Fprintln(w, line)
}
