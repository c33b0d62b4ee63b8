package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/database"
	"github.com/mrlokans/scalesync/internal/database/runs"
	"github.com/mrlokans/scalesync/internal/reconcile"
	"github.com/mrlokans/scalesync/internal/services"
)

type syncOptions struct {
	dryRun     bool
	sourceKind string
	sourcePath string
	noReport   bool
}

func (a *App) newSyncCommand() *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync scale products into MiAll",
		Long: `Reads every product from the scale database and creates or updates it
in MiAll under the configured category.

Press Ctrl-C to cancel. The product being written when the signal arrives
is finished first, then the run stops.

Exit codes: 0 success, 1 the run failed, 2 some products failed,
130 cancelled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "read and resolve everything but write nothing to MiAll")
	cmd.Flags().StringVar(&opts.sourceKind, "source-kind", "", "scale database kind: sqlite or access (overrides scale.kind)")
	cmd.Flags().StringVar(&opts.sourcePath, "source-path", "", "scale database file (overrides scale.db_path)")
	cmd.Flags().BoolVar(&opts.noReport, "no-report", false, "do not write a JSON report for this run")
	return cmd
}

func (a *App) runSync(cmd *cobra.Command, opts *syncOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Sync.DryRun = opts.dryRun
	}
	if opts.sourceKind != "" {
		cfg.Scale.Kind = opts.sourceKind
	}
	if opts.sourcePath != "" {
		cfg.Scale.DBPath = opts.sourcePath
	}
	if opts.noReport {
		cfg.Reports.Enabled = false
	}

	log := a.logger(cfg)

	var journal services.RunJournal
	if cfg.Journal.Enabled {
		db, err := database.NewDatabase(cfg.Journal.Path, log.With().Str("component", "journal").Logger())
		if err != nil {
			return err
		}
		defer db.Close()

		repo := runs.NewRepository(db.DB)
		active, err := repo.IsRunActive()
		if err != nil {
			return fmt.Errorf("failed to check the journal for active runs: %w", err)
		}
		if active {
			return &ExitError{
				Code: ExitFailure,
				Err: fmt.Errorf("%w, wait for it to finish (runs idle for %s count as interrupted)",
					runs.ErrRunActive, runs.StaleAfter),
			}
		}
		journal = repo
	}

	out := cmd.OutOrStdout()
	a.printSyncHeader(out, cfg)

	progress := &progressPrinter{out: out, styles: a.styles}
	send, stop := reconcile.NewAsyncSink(progress.print, reconcile.DefaultSinkBuffer)

	outcome, err := services.NewSyncService(journal, log).Run(cmd.Context(), cfg, send)
	stop()

	if err != nil {
		if apperr.IsCancelled(err) {
			fmt.Fprintln(out, a.styles.Warning.Render("Sync cancelled."))
			return &ExitError{Code: ExitCancelled}
		}
		return &ExitError{Code: ExitFailure, Err: err}
	}

	a.printSummary(out, outcome)
	if outcome.Result.Failed > 0 {
		return &ExitError{Code: ExitPartial}
	}
	return nil
}

func (a *App) printSyncHeader(out io.Writer, cfg *config.Config) {
	mode := "live"
	if cfg.Sync.DryRun {
		mode = "dry run"
	}
	fmt.Fprintln(out, a.styles.Title.Render("scalesync")+" "+a.styles.Muted.Render("("+mode+")"))
	fmt.Fprintf(out, "%s %s (%s)\n", a.styles.Label.Render("Source:  "), cfg.Scale.DBPath, cfg.Scale.Kind)
	fmt.Fprintf(out, "%s %s, category %s\n", a.styles.Label.Render("MiAll:   "), cfg.MiAll.Dialect, cfg.MiAll.CategoryName)
	fmt.Fprintln(out)
}

func (a *App) printSummary(out io.Writer, outcome *services.Outcome) {
	r := outcome.Result
	s := a.styles

	fmt.Fprintln(out)
	fmt.Fprintln(out, s.Title.Render("Summary"))
	fmt.Fprintf(out, "%s %d\n", s.Label.Render("Total:   "), r.Total)
	fmt.Fprintf(out, "%s %d\n", s.Label.Render("Updated: "), r.Updated)
	fmt.Fprintf(out, "%s %d\n", s.Label.Render("Inserted:"), r.Inserted)
	failed := fmt.Sprintf("%d", r.Failed)
	if r.Failed > 0 {
		failed = s.Error.Render(failed)
	}
	fmt.Fprintf(out, "%s %s\n", s.Label.Render("Failed:  "), failed)
	fmt.Fprintf(out, "%s %s\n", s.Label.Render("Duration:"), r.Duration().Round(time.Millisecond))
	if r.DryRun {
		fmt.Fprintln(out, s.Muted.Render("Dry run: nothing was written to MiAll."))
	}

	if len(r.Failures) > 0 {
		rows := make([][]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			rows = append(rows, []string{f.Good.Name, f.Good.Barcode, f.Good.Price.String(), f.Error()})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, s.Error.Render("Failed products"))
		fmt.Fprintln(out, s.Table([]string{"Name", "Barcode", "Price", "Error"}, rows))
	}

	if outcome.ReportFile != "" {
		fmt.Fprintf(out, "%s %s\n", s.Label.Render("Report:  "), outcome.ReportFile)
	}
}

// progressPrinter writes one line per finished product and per phase change.
type progressPrinter struct {
	out    io.Writer
	styles *Styles
}

func (p *progressPrinter) print(ev reconcile.ProgressEvent) {
	switch {
	case ev.ItemEnd():
		width := len(fmt.Sprint(ev.Total))
		counter := p.styles.Muted.Render(fmt.Sprintf("[%*d/%d]", width, ev.Current, ev.Total))
		if *ev.Succeeded {
			fmt.Fprintf(p.out, "%s %s %s (%s) %s\n", counter, p.styles.Success.Render("✓"),
				ev.Good.Name, ev.Good.Barcode, p.styles.Muted.Render(ev.ResultText))
			return
		}
		fmt.Fprintf(p.out, "%s %s %s (%s) %s\n", counter, p.styles.Error.Render("✗"),
			ev.Good.Name, ev.Good.Barcode, ev.ResultText)
	case ev.Phase == reconcile.PhaseReading, ev.Phase == reconcile.PhaseResolving:
		fmt.Fprintln(p.out, p.styles.Muted.Render(ev.Message))
	case ev.Phase == reconcile.PhaseDone:
		fmt.Fprintln(p.out, p.styles.Success.Render(ev.Message))
	case ev.Phase == reconcile.PhaseFailed:
		fmt.Fprintln(p.out, p.styles.Error.Render("Sync failed"))
	case ev.Phase == reconcile.PhaseCancelled:
		fmt.Fprintln(p.out, p.styles.Warning.Render(ev.Message))
	}
}
