package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/services"
)

func (a *App) newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check configuration, scale database and MiAll connectivity",
		Long: `Validates the configuration, checks that the scale database file exists,
connects to MiAll and resolves the product category. Nothing is read from
the scale or written to MiAll.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			svc := services.NewSyncService(nil, a.logger(cfg))
			results, ok := svc.Check(cmd.Context(), cfg)

			out := cmd.OutOrStdout()
			for _, r := range results {
				mark := a.styles.Success.Render("✓")
				if !r.OK {
					mark = a.styles.Error.Render("✗")
				}
				fmt.Fprintf(out, "%s %s %s\n", mark, a.styles.Label.Render(r.Name+":"), r.Detail)
				if r.Hint != "" {
					fmt.Fprintln(out, "  "+a.styles.Muted.Render(r.Hint))
				}
			}

			if !ok {
				return &ExitError{Code: ExitFailure}
			}
			fmt.Fprintln(out, a.styles.Success.Render("Ready to sync."))
			return nil
		},
	}
}
