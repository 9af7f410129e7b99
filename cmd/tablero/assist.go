package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/dashboard"
)

func newAssistCmd(opts *globalOptions) *cobra.Command {
	var (
		mode    string
		input   string
		session string
		format  string
		plan    = assistant.DefaultStudyPlan
	)

	cmd := &cobra.Command{
		Use:   "assist [text]",
		Short: "Ask the assistant for a reply, an agenda or a study plan",
		Long: `Send free text to the configured language model.

Modes:
  chat        plain reply
  agenda      weekly agenda, parsed into a calendar table
  study_plan  weekly study plan, shaped by --hours, --max-session, --rest-day

The text comes from --input, the arguments, or stdin when neither is given.`,
		Example: `  tablero assist --mode agenda "gimnasio lunes y miércoles, inglés los martes"
  echo "matemáticas, historia" | tablero assist --mode study_plan --hours 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := assistant.ParseMode(mode)
			if err != nil {
				return err
			}

			text := input
			if text == "" && len(args) > 0 {
				text = strings.Join(args, " ")
			}
			if text == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(raw)
			}

			a, err := newApp(cmd.Context(), opts, bootOptions{requireAssistant: true})
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.assistant.Generate(cmd.Context(), m, text,
				assistant.ForSession(session), assistant.WithStudyPlan(plan))
			if err != nil {
				return err
			}

			switch format {
			case "text":
				writeSections(cmd.OutOrStdout(), dashboard.ReplySections(reply))
				return nil
			case "json":
				return writeJSON(cmd.OutOrStdout(), reply)
			}
			return fmt.Errorf("unsupported format %q (use text or json)", format)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(assistant.ModeChat), "chat, agenda or study_plan")
	cmd.Flags().StringVarP(&input, "input", "i", "", "text to send")
	cmd.Flags().StringVar(&session, "session", "cli", "session id for the reply history")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json")
	cmd.Flags().Float64Var(&plan.HoursPerDay, "hours", plan.HoursPerDay, "study hours per day")
	cmd.Flags().Float64Var(&plan.MaxSessionHours, "max-session", plan.MaxSessionHours, "longest study session in hours")
	cmd.Flags().StringVar(&plan.RestDay, "rest-day", plan.RestDay, "day without study")
	return cmd
}
