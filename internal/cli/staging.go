package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/miall"
)

func (a *App) newStagingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage a SQLite staging copy of MiAll",
		Long: `A staging database lets you rehearse a sync without a MiAll server.
Set miall.dialect=sqlite and point miall.connection_string at a file.`,
	}

	var code string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the MiAll tables and the product category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.MiAll.Dialect != config.DialectSQLite {
				return &apperr.ConfigurationError{
					Setting: "miall.dialect",
					Msg:     fmt.Sprintf("staging init only works on sqlite, got %q", cfg.MiAll.Dialect),
					Hint:    "set miall.dialect=sqlite; live MiAll schemas are managed by MiAll",
				}
			}

			if cfg.MiAll.CategoryName == "" {
				return &apperr.ConfigurationError{
					Setting: "miall.category_name",
					Msg:     "category name is not configured",
				}
			}

			ctx := cmd.Context()
			repo, err := miall.Open(ctx, cfg.MiAll)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			existing, err := repo.ResolveCategory(ctx)
			var cfgErr *apperr.ConfigurationError
			switch {
			case err == nil:
				fmt.Fprintf(out, "Category %q already exists with code %s\n", cfg.MiAll.CategoryName, existing)
				return nil
			case !errors.As(err, &cfgErr):
				return err
			}

			if err := repo.CreateCategory(ctx, code, cfg.MiAll.CategoryName); err != nil {
				return err
			}
			fmt.Fprintln(out, a.styles.Success.Render(fmt.Sprintf("Created category %q with code %s", cfg.MiAll.CategoryName, code)))
			return nil
		},
	}
	initCmd.Flags().StringVar(&code, "code", "099", "category code (goodstypeno) to create")

	cmd.AddCommand(initCmd)
	return cmd
}
