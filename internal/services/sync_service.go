// Package services composes sync runs from configuration for the CLI and
// the HTTP surface.
package services

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/audit"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/entities"
	"github.com/mrlokans/scalesync/internal/miall"
	"github.com/mrlokans/scalesync/internal/reconcile"
	"github.com/mrlokans/scalesync/internal/scale"
)

// Target is a MiAll connection owned by a single run.
type Target interface {
	reconcile.Target
	Ping(ctx context.Context) error
	Close() error
}

// RunJournal records runs and links their reports.
type RunJournal interface {
	reconcile.Recorder
	SetReportFile(id, file string) error
}

// Outcome is what a finished run produced.
type Outcome struct {
	Result     *reconcile.Result
	ReportFile string
}

// SyncService builds and runs one reconciliation per call from the
// configuration it is given, so no state is shared between runs.
type SyncService struct {
	journal    RunJournal
	log        zerolog.Logger
	newReader  func(cfg config.Scale) (reconcile.Source, error)
	openTarget func(ctx context.Context, cfg config.MiAll) (Target, error)
}

// NewSyncService creates a service. journal may be nil.
func NewSyncService(journal RunJournal, log zerolog.Logger) *SyncService {
	s := &SyncService{
		journal:   journal,
		log:       log,
		newReader: newScaleReader,
	}
	s.openTarget = s.openMiAll
	return s
}

func newScaleReader(cfg config.Scale) (reconcile.Source, error) {
	r, err := scale.NewReader(cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SyncService) openMiAll(ctx context.Context, cfg config.MiAll) (Target, error) {
	repo, err := miall.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo.SetLogger(s.log.With().Str("component", "miall").Logger())
	return repo, nil
}

// Run performs one sync with cfg. The report is written when reports are
// enabled; failing to write it is logged and does not fail the run.
func (s *SyncService) Run(ctx context.Context, cfg *config.Config, sink reconcile.ProgressFunc) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reader, err := s.newReader(cfg.Scale)
	if err != nil {
		return nil, err
	}

	target := &lazyTarget{open: func(ctx context.Context) (Target, error) {
		return s.openTarget(ctx, cfg.MiAll)
	}}
	defer func() {
		if err := target.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close MiAll connection")
		}
	}()

	engine := reconcile.NewEngine(reader, target, reconcile.Options{
		DryRun:            cfg.Sync.DryRun,
		TreatEmptyAsError: cfg.Sync.TreatEmptyAsError,
		SourceKind:        cfg.Scale.Kind,
		SourcePath:        cfg.Scale.DBPath,
	})
	engine.SetLogger(s.log.With().Str("component", "reconcile").Logger())
	if s.journal != nil {
		engine.SetRecorder(s.journal)
	}

	result, err := engine.Run(ctx, sink)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: result}
	if cfg.Reports.Enabled {
		out.ReportFile = s.saveReport(cfg, result)
	}
	return out, nil
}

func (s *SyncService) saveReport(cfg *config.Config, result *reconcile.Result) string {
	auditor := audit.NewAuditor(cfg.Reports.Dir)
	auditor.SetLogger(s.log)

	file, err := auditor.SaveReport(result, ReportSettings(cfg))
	if err != nil {
		s.log.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to save run report")
		return ""
	}
	if s.journal != nil {
		if err := s.journal.SetReportFile(result.RunID, file); err != nil {
			s.log.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to link run report")
		}
	}
	return filepath.Join(cfg.Reports.Dir, file)
}

// ReportSettings summarizes cfg for a report with secrets masked.
func ReportSettings(cfg *config.Config) audit.Settings {
	return audit.Settings{
		SourceKind:       cfg.Scale.Kind,
		SourcePath:       cfg.Scale.DBPath,
		Dialect:          cfg.MiAll.Dialect,
		ConnectionString: config.MaskConnectionString(cfg.MiAll.ConnectionString),
		CategoryName:     cfg.MiAll.CategoryName,
	}
}

// lazyTarget connects to MiAll when the engine resolves the category, after
// the scale database has been read.
type lazyTarget struct {
	open   func(ctx context.Context) (Target, error)
	target Target
}

func (l *lazyTarget) ResolveCategory(ctx context.Context) (string, error) {
	if l.target == nil {
		t, err := l.open(ctx)
		if err != nil {
			return "", err
		}
		l.target = t
	}
	return l.target.ResolveCategory(ctx)
}

func (l *lazyTarget) Upsert(ctx context.Context, good entities.Good, categoryCode string, dryRun bool) (miall.UpsertResult, error) {
	return l.target.Upsert(ctx, good, categoryCode, dryRun)
}

func (l *lazyTarget) Close() error {
	if l.target == nil {
		return nil
	}
	return l.target.Close()
}
