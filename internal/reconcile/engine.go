// Package reconcile drives a sync run: read every product from the scale,
// resolve the MiAll category once, then upsert the products one at a time.
//
// A run either returns a Result, in which failed upserts are counted and
// listed, or a run-level error with no Result. Run-level errors are read
// failures, an empty source when that is treated as an error, a missing
// category and cancellation.
//
//	engine := reconcile.NewEngine(reader, repo, reconcile.Options{TreatEmptyAsError: true})
//	engine.SetRecorder(runsRepo)
//	result, err := engine.Run(ctx, func(ev reconcile.ProgressEvent) { ... })
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/entities"
	"github.com/mrlokans/scalesync/internal/miall"
)

// Source provides the products of one run.
type Source interface {
	ReadAll(ctx context.Context) ([]entities.Good, error)
}

// Target is where products are written.
type Target interface {
	ResolveCategory(ctx context.Context) (string, error)
	Upsert(ctx context.Context, good entities.Good, categoryCode string, dryRun bool) (miall.UpsertResult, error)
}

// Recorder persists run progress. Recorder failures are logged and never
// affect the run.
type Recorder interface {
	StartRun(run *entities.SyncRun) error
	UpdateRun(id string, counts entities.RunCounts, currentItem string) error
	CompleteRun(id string, status entities.RunStatus, errMsg string) error
}

// ErrEmptySource aborts a run whose source returned no products while
// Options.TreatEmptyAsError is set.
var ErrEmptySource = &apperr.ConfigurationError{
	Setting: "sync.treat_empty_as_error",
	Msg:     "the scale database returned 0 products, the run was aborted to avoid syncing from a wrong or disconnected source",
	Hint:    "check scale.db_path, or set sync.treat_empty_as_error=false if the scale is really empty",
}

type Options struct {
	DryRun            bool
	TreatEmptyAsError bool

	// ItemTimeout bounds a single upsert. Zero leaves it to the target.
	ItemTimeout time.Duration

	// SourceKind and SourcePath are only recorded in the journal.
	SourceKind string
	SourcePath string
}

// Engine runs reconciliations. An Engine may be reused for several
// sequential runs but must not run concurrently with itself.
type Engine struct {
	source   Source
	target   Target
	opts     Options
	recorder Recorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewEngine creates an engine reading from src and writing to dst.
func NewEngine(src Source, dst Target, opts Options) *Engine {
	return &Engine{
		source: src,
		target: dst,
		opts:   opts,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
}

// SetRecorder sets the run journal (optional).
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetLogger sets the logger (optional).
func (e *Engine) SetLogger(l zerolog.Logger) {
	e.log = l
}

// run holds the state of one invocation of Run.
type run struct {
	id      string
	log     zerolog.Logger
	sink    ProgressFunc
	started time.Time
}

// Run performs one reconciliation. sink may be nil.
func (e *Engine) Run(ctx context.Context, sink ProgressFunc) (*Result, error) {
	r := &run{
		id:      uuid.NewString(),
		sink:    sink,
		started: e.now(),
	}
	r.log = e.log.With().Str("run_id", r.id).Logger()
	if r.sink == nil {
		r.sink = func(ProgressEvent) {}
	}

	e.recordStart(r)
	r.log.Info().Bool("dry_run", e.opts.DryRun).Msg("Starting sync run")

	if err := ctx.Err(); err != nil {
		return nil, e.cancelled(r, err, entities.RunCounts{})
	}

	e.emit(r, ProgressEvent{Phase: PhaseReading, Message: "Reading scale database..."})
	goods, err := e.source.ReadAll(ctx)
	if err != nil {
		if apperr.IsCancelled(err) {
			return nil, e.cancelled(r, err, entities.RunCounts{})
		}
		return nil, e.failed(r, err, entities.RunCounts{})
	}

	n := len(goods)
	r.log.Info().Int("products", n).Msg("Read scale database")
	if n == 0 && e.opts.TreatEmptyAsError {
		return nil, e.failed(r, ErrEmptySource, entities.RunCounts{})
	}

	if err := ctx.Err(); err != nil {
		return nil, e.cancelled(r, err, entities.RunCounts{Total: n})
	}

	e.emit(r, ProgressEvent{Phase: PhaseResolving, Message: "Connecting to MiAll...", Total: n})
	categoryCode, err := e.target.ResolveCategory(ctx)
	if err != nil {
		if apperr.IsCancelled(err) {
			return nil, e.cancelled(r, err, entities.RunCounts{Total: n})
		}
		return nil, e.failed(r, err, entities.RunCounts{Total: n})
	}
	r.log.Debug().Str("category_code", categoryCode).Msg("Resolved category")

	result := &Result{
		RunID:     r.id,
		Total:     n,
		Failures:  []Failure{},
		DryRun:    e.opts.DryRun,
		StartedAt: r.started,
	}

	for i, good := range goods {
		if err := ctx.Err(); err != nil {
			return nil, e.cancelled(r, err, result.counts(i))
		}

		g := good
		e.emit(r, ProgressEvent{
			Phase:     PhaseSyncing,
			Message:   "Syncing: " + g.Name,
			Current:   i,
			Total:     n,
			Good:      &g,
			ItemIndex: i + 1,
		})

		res, err := e.upsert(ctx, g, categoryCode)
		end := ProgressEvent{
			Phase:     PhaseSyncing,
			Current:   i + 1,
			Total:     n,
			Good:      &g,
			ItemIndex: i + 1,
		}
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{Good: g, Err: err})
			end.Message = "Failed: " + g.Name
			end.Succeeded = boolPtr(false)
			end.ResultText = err.Error()
			r.log.Warn().Err(err).Str("barcode", g.Barcode).Str("name", g.Name).Msg("Upsert failed")
		} else {
			if res.Updated {
				result.Updated++
			}
			if res.Inserted {
				result.Inserted++
			}
			end.Message = "Done: " + g.Name
			end.Succeeded = boolPtr(true)
			end.ResultText = res.Label()
			r.log.Debug().Str("barcode", g.Barcode).Str("result", res.Label()).Msg("Upserted product")
		}
		e.emit(r, end)
		e.recordProgress(r, result.counts(i+1), g.Name)
	}

	result.FinishedAt = e.now()
	e.emit(r, ProgressEvent{Phase: PhaseDone, Message: "Sync complete", Current: n, Total: n})
	e.recordComplete(r, result.counts(n), result.Status(), "")

	r.log.Info().
		Int("total", result.Total).
		Int("updated", result.Updated).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Dur("duration", result.Duration()).
		Msg("Sync run finished")
	return result, nil
}

// upsert isolates the item from cancellation so a transaction that has
// started always reaches commit or rollback.
func (e *Engine) upsert(ctx context.Context, good entities.Good, categoryCode string) (miall.UpsertResult, error) {
	itemCtx := context.WithoutCancel(ctx)
	if e.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(itemCtx, e.opts.ItemTimeout)
		defer cancel()
	}
	return e.target.Upsert(itemCtx, good, categoryCode, e.opts.DryRun)
}

func (e *Engine) failed(r *run, err error, counts entities.RunCounts) error {
	r.log.Error().Err(err).Msg("Sync run failed")
	e.emit(r, ProgressEvent{
		Phase:   PhaseFailed,
		Message: "Sync failed: " + err.Error(),
		Current: counts.Processed,
		Total:   counts.Total,
	})
	e.recordComplete(r, counts, entities.RunStatusFailed, err.Error())
	return err
}

func (e *Engine) cancelled(r *run, cause error, counts entities.RunCounts) error {
	err := cause
	if !errors.Is(cause, apperr.ErrCancelled) {
		err = apperr.Cancelled(cause)
	}
	r.log.Warn().Int("processed", counts.Processed).Int("total", counts.Total).Msg("Sync run cancelled")
	e.emit(r, ProgressEvent{
		Phase:   PhaseCancelled,
		Message: fmt.Sprintf("Sync cancelled after %d of %d products", counts.Processed, counts.Total),
		Current: counts.Processed,
		Total:   counts.Total,
	})
	e.recordComplete(r, counts, entities.RunStatusCancelled, "cancelled by operator")
	return err
}

func (e *Engine) emit(r *run, ev ProgressEvent) {
	ev.Time = e.now()
	r.sink(ev)
}

func (e *Engine) recordStart(r *run) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.StartRun(&entities.SyncRun{
		ID:         r.id,
		Status:     entities.RunStatusRunning,
		SourceKind: e.opts.SourceKind,
		SourcePath: e.opts.SourcePath,
		DryRun:     e.opts.DryRun,
		StartedAt:  r.started,
		UpdatedAt:  r.started,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to record run start")
	}
}

func (e *Engine) recordProgress(r *run, counts entities.RunCounts, currentItem string) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.UpdateRun(r.id, counts, currentItem); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record run progress")
	}
}

func (e *Engine) recordComplete(r *run, counts entities.RunCounts, status entities.RunStatus, errMsg string) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.UpdateRun(r.id, counts, ""); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record run progress")
	}
	if err := e.recorder.CompleteRun(r.id, status, errMsg); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record run completion")
	}
}

func boolPtr(b bool) *bool {
	return &b
}
