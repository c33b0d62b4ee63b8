package reconcile

import (
	"time"

	"github.com/mrlokans/scalesync/internal/entities"
)

// Result is the outcome of a run that was not aborted.
// Total always equals Updated + Inserted + Failed, except for dry runs where
// Updated and Inserted stay zero.
type Result struct {
	RunID      string    `json:"run_id"`
	Total      int       `json:"total"`
	Updated    int       `json:"updated"`
	Inserted   int       `json:"inserted"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failure is a product whose upsert failed, with the error.
type Failure struct {
	Good entities.Good `json:"good"`
	Err  error         `json:"-"`
}

// Error returns the failure text, empty when Err is nil.
func (f Failure) Error() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Status maps the result to the journal status.
func (r *Result) Status() entities.RunStatus {
	if r.Failed > 0 {
		return entities.RunStatusPartial
	}
	return entities.RunStatusCompleted
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) counts(processed int) entities.RunCounts {
	return entities.RunCounts{
		Total:     r.Total,
		Processed: processed,
		Updated:   r.Updated,
		Inserted:  r.Inserted,
		Failed:    r.Failed,
	}
}
