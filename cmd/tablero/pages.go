package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/tablero/dashboard"
	"github.com/spektr-org/tablero/dataset"
	"github.com/spektr-org/tablero/render"
)

// ============================================================================
// STUDENTS
// ============================================================================

func newStudentsCmd(opts *globalOptions) *cobra.Command {
	var (
		menu   string
		minAge float64
		format string
	)

	cmd := &cobra.Command{
		Use:   "students",
		Short: "Explore the student roster",
		Long: `Print the student roster page: first and last rows, column info,
statistics, the adults table and the selected menu view.

Menu options: "Primeras filas", "Estadísticas", "Filtrar por edad".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if cmd.Flags().Changed("menu") {
				q.Set(dashboard.StudentsMenuKey, menu)
			}
			if cmd.Flags().Changed("edad-min") {
				q.Set(dashboard.StudentsMinAgeKey, strconv.FormatFloat(minAge, 'f', -1, 64))
				if !cmd.Flags().Changed("menu") {
					q.Set(dashboard.StudentsMenuKey, dashboard.MenuByAge)
				}
			}

			a, err := newApp(cmd.Context(), opts, bootOptions{datasets: true})
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := a.dashboard.Students(q)
			if err != nil {
				return err
			}

			switch format {
			case "table":
				writePage(cmd.OutOrStdout(), page)
				return nil
			case "json":
				return writeJSON(cmd.OutOrStdout(), page)
			}
			return fmt.Errorf("unsupported format %q (use table or json)", format)
		},
	}

	cmd.Flags().StringVar(&menu, "menu", dashboard.MenuFirstRows, "menu view to show")
	cmd.Flags().Float64Var(&minAge, "edad-min", 2, "minimum age for the age filter (0-7)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json")
	return cmd
}

// ============================================================================
// CASES
// ============================================================================

// caseFilterFlags are the multiselect widget keys exposed as flags.
var caseFilterFlags = []struct{ name, usage string }{
	{"estado", "keep these ESTADO_NOTICIA values"},
	{"etapa", "keep these ETAPA values"},
	{"delito", "keep these DELITO values"},
	{"condena", "keep these CONDENA values"},
	{"municipio", "keep these MUNICIPIO values"},
}

func newCasesCmd(opts *globalOptions) *cobra.Command {
	var (
		filters  = make(map[string]*[]string, len(caseFilterFlags))
		procesos string
		full     bool
		format   string
		chart    string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Analyse the criminal-cases register",
		Long: `Filter the criminal-cases register and print its charts.

Filters combine: a record is kept only when it matches every flag. Repeat a
filter flag to keep several values; omit it to keep them all.

Formats:
  table   chart data as terminal tables (default)
  json    the full page as JSON
  csv     the filtered records as CSV
  xlsx    the filtered records as an Excel workbook (requires --out)

With --chart, only that chart is computed; --out file.png or file.svg
writes the chart image.`,
		Example: `  tablero cases --estado ACTIVO --procesos 1,10
  tablero cases --municipio NEIVA --format csv --out neiva.csv
  tablero cases --chart etapas-pie --out etapas.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			for _, f := range caseFilterFlags {
				if cmd.Flags().Changed(f.name) {
					q[f.name] = *filters[f.name]
					if len(q[f.name]) == 0 {
						q[f.name] = []string{""}
					}
				}
			}
			if procesos != "" {
				q.Set(dashboard.CasesProcesosKey, procesos)
			}
			if full {
				q.Set(dashboard.CasesFullKey, "on")
			}

			a, err := newApp(cmd.Context(), opts, bootOptions{datasets: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if chart != "" {
				return writeCaseChart(cmd, a, chart, q, format, out)
			}

			w, closeOut, err := output(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case "table", "json":
				page, err := a.dashboard.Cases(q)
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(w, page)
				}
				writePage(w, page)
				return nil

			case "csv", "xlsx":
				data, err := a.dashboard.CasesData(q)
				if err != nil {
					return err
				}
				if format == "csv" {
					return dataset.WriteCSV(w, data)
				}
				if out == "" {
					return fmt.Errorf("--format xlsx requires --out")
				}
				if err := dataset.WriteXLSX(w, dashboard.CasesDataset, data); err != nil {
					return err
				}
				a.logger.Info("📄 workbook written", zap.String("file", out), zap.Int("rows", len(data.Rows)))
				return nil
			}
			return fmt.Errorf("unsupported format %q (use table, json, csv or xlsx)", format)
		},
	}

	for _, f := range caseFilterFlags {
		values := []string{}
		filters[f.name] = &values
		cmd.Flags().StringArrayVar(filters[f.name], f.name, nil, f.usage)
	}
	cmd.Flags().StringVar(&procesos, "procesos", "", "TOTAL_PROCESOS range as min,max")
	cmd.Flags().BoolVar(&full, "full", false, "include the complete data table")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, csv, xlsx")
	cmd.Flags().StringVar(&chart, "chart", "", "compute a single chart: "+strings.Join(dashboard.CaseCharts(), ", "))
	cmd.Flags().StringVarP(&out, "out", "o", "", "write output to file instead of stdout")
	return cmd
}

func writeCaseChart(cmd *cobra.Command, a *app, name string, q url.Values, format, out string) error {
	cfg, err := a.dashboard.CasesChart(name, q)
	if err != nil {
		return err
	}

	if out == "" {
		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		render.WriteChartSummary(cmd.OutOrStdout(), cfg)
		return nil
	}

	imgFormat, err := render.ParseFormat(strings.TrimPrefix(filepath.Ext(out), "."))
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := render.RenderChart(cfg, imgFormat, f); err != nil {
		return err
	}
	a.logger.Info("📊 chart written", zap.String("chart", name), zap.String("file", out))
	return nil
}
