package http

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/audit"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/database/runs"
	"github.com/mrlokans/scalesync/internal/entities"
	"github.com/mrlokans/scalesync/internal/reconcile"
	"github.com/mrlokans/scalesync/internal/services"
)

// ErrRunActive is returned by RunManager.Start while another run is going.
var ErrRunActive = runs.ErrRunActive

// Runner performs one sync. services.SyncService implements it.
type Runner interface {
	Run(ctx context.Context, cfg *config.Config, sink reconcile.ProgressFunc) (*services.Outcome, error)
}

// RunActivity reports runs recorded by any process sharing the journal.
// runs.Repository implements it.
type RunActivity interface {
	IsRunActive() (bool, error)
}

// ConfigLoader returns a fresh configuration for every run.
type ConfigLoader func() (*config.Config, error)

// LastRun describes the most recently finished run.
type LastRun struct {
	Status     entities.RunStatus `json:"status"`
	DryRun     bool               `json:"dry_run"`
	Report     *audit.Report      `json:"report,omitempty"`
	ReportFile string             `json:"report_file,omitempty"`
	Error      string             `json:"error,omitempty"`
	Hint       string             `json:"hint,omitempty"`
	FinishedAt time.Time          `json:"finished_at"`
}

// SyncStatus is the body of GET /api/sync/status.
type SyncStatus struct {
	Running  bool             `json:"running"`
	Progress reconcile.Status `json:"progress"`
	Last     *LastRun         `json:"last,omitempty"`
}

// RunManager owns the background run of the HTTP surface. At most one run
// is active at a time.
type RunManager struct {
	runner  Runner
	load    ConfigLoader
	tracker *reconcile.Tracker
	log     zerolog.Logger
	journal RunActivity

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   *LastRun
}

func NewRunManager(runner Runner, load ConfigLoader, log zerolog.Logger) *RunManager {
	return &RunManager{
		runner:  runner,
		load:    load,
		tracker: reconcile.NewTracker(reconcile.DefaultTrackerRows),
		log:     log,
	}
}

// SetRunActivity makes Start refuse to begin while the journal shows a run
// from another process, such as a CLI sync.
func (m *RunManager) SetRunActivity(j RunActivity) {
	m.journal = j
}

// Start loads the configuration and starts a run in the background. dryRun
// overrides sync.dry_run when set.
func (m *RunManager) Start(dryRun *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return ErrRunActive
	}
	if m.journal != nil {
		active, err := m.journal.IsRunActive()
		if err != nil {
			m.log.Warn().Err(err).Msg("Failed to check the journal for active runs")
		} else if active {
			return ErrRunActive
		}
	}

	cfg, err := m.load()
	if err != nil {
		return err
	}
	if dryRun != nil {
		cfg.Sync.DryRun = *dryRun
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	m.tracker.Reset()
	go m.run(ctx, cancel, cfg, done)
	return nil
}

func (m *RunManager) run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, done chan struct{}) {
	defer close(done)
	defer cancel()

	send, stop := reconcile.NewAsyncSink(m.tracker.Observe, reconcile.DefaultSinkBuffer)
	out, err := m.runner.Run(ctx, cfg, send)
	stop()

	last := &LastRun{DryRun: cfg.Sync.DryRun, FinishedAt: time.Now()}
	switch {
	case err == nil:
		report := audit.NewReport(out.Result, services.ReportSettings(cfg))
		last.Status = out.Result.Status()
		last.Report = &report
		last.ReportFile = out.ReportFile
	case apperr.IsCancelled(err):
		last.Status = entities.RunStatusCancelled
		last.Error = err.Error()
	default:
		last.Status = entities.RunStatusFailed
		last.Error = err.Error()
		last.Hint = apperr.Hint(err)
		m.log.Error().Err(err).Msg("Background sync run failed")
	}

	m.mu.Lock()
	m.last = last
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()
}

// Cancel requests cancellation of the active run. It reports whether a run
// was active.
func (m *RunManager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Running reports whether a run is active.
func (m *RunManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Wait blocks until the active run, if any, has finished or ctx is done.
func (m *RunManager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the active run and waits for it to stop.
func (m *RunManager) Shutdown(ctx context.Context) error {
	m.Cancel()
	return m.Wait(ctx)
}

// Status returns the live progress and the last finished run.
func (m *RunManager) Status() SyncStatus {
	m.mu.Lock()
	running := m.cancel != nil
	last := m.last
	m.mu.Unlock()

	return SyncStatus{
		Running:  running,
		Progress: m.tracker.Snapshot(),
		Last:     last,
	}
}
