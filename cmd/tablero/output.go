package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/tablero/dashboard"
	"github.com/spektr-org/tablero/render"
)

// writePage prints a page for the terminal.
func writePage(w io.Writer, page *dashboard.Page) {
	render.WriteHeading(w, page.Title)
	if page.Description != "" {
		fmt.Fprintln(w, page.Description)
		fmt.Fprintln(w)
	}
	writeSections(w, page.Sections)
}

func writeSections(w io.Writer, sections []dashboard.Section) {
	for _, s := range sections {
		if s.Heading != "" {
			render.WriteHeading(w, s.Heading)
		}
		switch s.Kind {
		case dashboard.SectionTable:
			render.WriteTable(w, s.Table)
		case dashboard.SectionChart:
			render.WriteChartSummary(w, s.Chart)
		case dashboard.SectionText:
			fmt.Fprintln(w, s.Text)
		case dashboard.SectionNotice:
			if s.Notice != nil {
				render.WriteNotice(w, s.Notice.Level, s.Notice.Text)
			}
		}
		fmt.Fprintln(w)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// output opens --out, or returns stdout when path is empty.
func output(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
