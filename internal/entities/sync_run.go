package entities

import (
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

type SyncRun struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Status      RunStatus  `gorm:"size:20;index" json:"status"`
	SourceKind  string     `gorm:"size:20" json:"source_kind"`
	SourcePath  string     `gorm:"size:1024" json:"source_path"`
	DryRun      bool       `json:"dry_run"`
	TotalItems  int        `json:"total_items"`
	Processed   int        `json:"processed"`
	Updated     int        `json:"updated"`
	Inserted    int        `json:"inserted"`
	Failed      int        `json:"failed"`
	CurrentItem string     `gorm:"size:512" json:"current_item,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	ReportFile  string     `gorm:"size:255" json:"report_file,omitempty"`
	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

// Finished reports whether the run reached a terminal status.
func (r *SyncRun) Finished() bool {
	return r.Status != RunStatusRunning
}

// RunCounts is a progress snapshot of a run.
type RunCounts struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Inserted  int `json:"inserted"`
	Failed    int `json:"failed"`
}
