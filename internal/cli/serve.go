package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/entrypoint"
)

func (a *App) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP operator API",
		Long: `Serves the operator API on http.host:http.port:

  GET  /health            journal and MiAll connectivity
  POST /api/sync          start a run (?dry_run=true for a dry run)
  POST /api/sync/cancel   cancel the active run
  GET  /api/sync/status   progress of the active run and the last result
  GET  /api/runs          run journal

The configuration is read again for every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return entrypoint.Run(cmd.Context(), a.loadConfig, a.version, a.logger(cfg))
		},
	}
}
