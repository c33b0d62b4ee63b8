// Package runs provides database operations for the sync run journal.
//
// Repository implements reconcile.Recorder, so the engine writes progress
// straight into the journal while a run is going.
//
//	repo := runs.NewRepository(db.DB)
//	engine.SetRecorder(repo)
//	recent, err := repo.ListRuns(20)
package runs

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/scalesync/internal/entities"
)

// StaleAfter is how long a running record may go without an update before
// it is treated as interrupted.
const StaleAfter = 10 * time.Minute

const interruptedMessage = "sync was interrupted"

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("sync run not found")

	// ErrRunActive means a run is already in progress, possibly in another
	// process sharing the journal.
	ErrRunActive = errors.New("a sync run is already in progress")
)

// Repository handles all sync run database operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new runs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// StartRun stores a new run record.
func (r *Repository) StartRun(run *entities.SyncRun) error {
	now := r.now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = entities.RunStatusRunning
	}
	return r.db.Create(run).Error
}

// UpdateRun stores the counters of an ongoing run.
func (r *Repository) UpdateRun(id string, counts entities.RunCounts, currentItem string) error {
	return r.db.Model(&entities.SyncRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_items":  counts.Total,
			"processed":    counts.Processed,
			"updated":      counts.Updated,
			"inserted":     counts.Inserted,
			"failed":       counts.Failed,
			"current_item": currentItem,
			"updated_at":   r.now(),
		}).Error
}

// CompleteRun marks a run as finished with the given status.
func (r *Repository) CompleteRun(id string, status entities.RunStatus, errMsg string) error {
	now := r.now()
	updates := map[string]any{
		"status":       status,
		"current_item": "",
		"updated_at":   now,
		"completed_at": now,
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return r.db.Model(&entities.SyncRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetReportFile links the JSON report written for a run.
func (r *Repository) SetReportFile(id, file string) error {
	return r.db.Model(&entities.SyncRun{}).
		Where("id = ?", id).
		Update("report_file", file).Error
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(id string) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (r *Repository) ListRuns(limit int) ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	q := r.db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// IsRunActive checks whether a run is in progress. Running records that were
// not updated within StaleAfter are closed as interrupted.
func (r *Repository) IsRunActive() (bool, error) {
	if _, err := r.closeStale(r.now().Add(-StaleAfter)); err != nil {
		return false, err
	}

	var count int64
	err := r.db.Model(&entities.SyncRun{}).
		Where("status = ?", entities.RunStatusRunning).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecoverInterrupted closes every running record. It is meant for process
// start, when no run can possibly be in progress.
func (r *Repository) RecoverInterrupted() (int64, error) {
	return r.closeStale(r.now().Add(time.Second))
}

func (r *Repository) closeStale(before time.Time) (int64, error) {
	now := r.now()
	res := r.db.Model(&entities.SyncRun{}).
		Where("status = ? AND updated_at < ?", entities.RunStatusRunning, before).
		Updates(map[string]any{
			"status":       entities.RunStatusFailed,
			"error":        interruptedMessage,
			"current_item": "",
			"updated_at":   now,
			"completed_at": now,
		})
	return res.RowsAffected, res.Error
}
