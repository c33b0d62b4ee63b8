package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/config"
)

func (a *App) newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after defaults, the config file and
SCALESYNC_* environment variables are applied. Passwords in the MiAll
connection string are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := "defaults and environment"
			if cfg.File != "" {
				source = cfg.File
			}
			fmt.Fprintln(out, a.styles.Muted.Render("Loaded from "+source))
			fmt.Fprintln(out, a.styles.Table([]string{"Key", "Value"}, settingsRows(cfg.Masked())))

			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(out, a.styles.Warning.Render("The configuration is not ready for a sync run:"))
				fmt.Fprintln(out, err.Error())
			}
			return nil
		},
	}
}

func settingsRows(cfg *config.Config) [][]string {
	b := strconv.FormatBool
	return [][]string{
		{"scale.kind", cfg.Scale.Kind},
		{"scale.db_path", cfg.Scale.DBPath},
		{"scale.encoding", cfg.Scale.Encoding},
		{"scale.busy_timeout", cfg.Scale.BusyTimeout.String()},
		{"miall.dialect", cfg.MiAll.Dialect},
		{"miall.connection_string", cfg.MiAll.ConnectionString},
		{"miall.category_name", cfg.MiAll.CategoryName},
		{"miall.command_timeout", cfg.MiAll.CommandTimeout.String()},
		{"miall.max_conns", strconv.Itoa(int(cfg.MiAll.MaxConns))},
		{"miall.min_conns", strconv.Itoa(int(cfg.MiAll.MinConns))},
		{"miall.max_conn_lifetime", cfg.MiAll.MaxConnLifetime.String()},
		{"miall.max_conn_idle_time", cfg.MiAll.MaxConnIdleTime.String()},
		{"sync.dry_run", b(cfg.Sync.DryRun)},
		{"sync.treat_empty_as_error", b(cfg.Sync.TreatEmptyAsError)},
		{"journal.enabled", b(cfg.Journal.Enabled)},
		{"journal.path", cfg.Journal.Path},
		{"reports.enabled", b(cfg.Reports.Enabled)},
		{"reports.dir", cfg.Reports.Dir},
		{"http.host", cfg.HTTP.Host},
		{"http.port", strconv.Itoa(cfg.HTTP.Port)},
		{"http.shutdown_timeout", cfg.HTTP.ShutdownTimeout.String()},
		{"log.level", cfg.Log.Level},
		{"log.format", cfg.Log.Format},
	}
}
