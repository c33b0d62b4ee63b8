package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/database"
	"github.com/mrlokans/scalesync/internal/database/runs"
	"github.com/mrlokans/scalesync/internal/entities"
)

func (a *App) newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return &apperr.ConfigurationError{
					Setting: "journal.enabled",
					Msg:     "the run journal is disabled",
					Hint:    "set journal.enabled=true to record sync runs",
				}
			}

			db, err := database.NewDatabase(cfg.Journal.Path, a.logger(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := runs.NewRepository(db.DB).ListRuns(limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, a.styles.Muted.Render("No sync runs recorded yet."))
				return nil
			}
			fmt.Fprintln(out, a.styles.Table(
				[]string{"Started", "Status", "Mode", "Total", "Updated", "Inserted", "Failed", "Duration", "Error"},
				historyRows(list),
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	return cmd
}

func historyRows(list []entities.SyncRun) [][]string {
	rows := make([][]string, 0, len(list))
	for _, run := range list {
		mode := "live"
		if run.DryRun {
			mode = "dry run"
		}
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			mode,
			strconv.Itoa(run.TotalItems),
			strconv.Itoa(run.Updated),
			strconv.Itoa(run.Inserted),
			strconv.Itoa(run.Failed),
			duration,
			truncate(run.Error, 60),
		})
	}
	return rows
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
