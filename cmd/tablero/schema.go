package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/dataset"
	"github.com/spektr-org/tablero/schema"
)

func newSchemaCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		name   string
		refine bool
		out    string
	)

	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Discover the dimensions and measures of a CSV or XLSX file",
		Long: `Auto-detect the schema of a record table. With --refine the draft is
sent to the configured language model for display names and hierarchies;
when refinement fails the draft is printed unchanged.`,
		Example: `  tablero schema data/procesos.csv --format yaml
  tablero schema data/estudiantes.xlsx --refine --out schema.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (use json or yaml)", format)
			}

			frame, err := dataset.Load(args[0])
			if err != nil {
				return err
			}

			var schemaOpts []schema.Option
			if name != "" {
				schemaOpts = append(schemaOpts, schema.WithName(name))
			}
			sch, err := schema.DiscoverFromFrame(frame, schemaOpts...)
			if err != nil {
				return fmt.Errorf("auto-detect failed: %w", err)
			}

			if refine {
				a, err := newApp(cmd.Context(), opts, bootOptions{requireAssistant: true})
				if err != nil {
					return err
				}
				defer a.Close()

				gen := assistant.TextGenerator{Provider: a.provider, Model: a.model, MaxTokens: a.cfg.Assistant.MaxTokens}
				refined, err := schema.Refine(cmd.Context(), sch, gen, a.logger)
				if err != nil {
					a.logger.Warn("⚠️ smart refine failed, using auto-detect", zap.Error(err))
				} else {
					sch = refined
				}
			}

			w, closeOut, err := output(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			defer closeOut()

			if format == "yaml" {
				return writeYAML(w, sch)
			}
			return writeJSON(w, sch)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml")
	cmd.Flags().StringVar(&name, "name", "", "schema name (defaults to the file name)")
	cmd.Flags().BoolVar(&refine, "refine", false, "enrich the schema with the language model")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write output to file instead of stdout")
	return cmd
}
