package main

import (
	"github.com/spf13/cobra"

	"github.com/spektr-org/tablero/render"
)

// globalOptions holds the persistent flag values.
type globalOptions struct {
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "tablero",
		Short: "Dashboards over student and criminal-case records",
		Long: `Tablero loads two record tables (a student roster and a register of
criminal cases), renders filtered tables and charts over them, and runs a
language-model assistant that turns free text into weekly agendas and study
plans. Every page is available in the terminal and over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				render.SetColor(false)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newServeCmd(opts),
		newStudentsCmd(opts),
		newCasesCmd(opts),
		newAssistCmd(opts),
		newSchemaCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
