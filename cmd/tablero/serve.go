package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/spektr-org/tablero/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the dashboard pages, chart images, dataset import/export and the
assistant over HTTP. Prometheus metrics are exposed on /metrics.

The assistant routes are only registered when the configured provider
starts; without an API key the rest of the API still runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, bootOptions{datasets: true, assistant: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if !opts.verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			return server.New(a.cfg.Server, a.registry, a.dashboard, a.assistant, a.logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
