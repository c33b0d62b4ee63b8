// Package audit writes one JSON report per finished sync run so failures can
// be reviewed after the console or the status page is gone.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/scalesync/internal/reconcile"
)

type Auditor struct {
	AuditDir string
	log      zerolog.Logger
}

func NewAuditor(auditDir string) *Auditor {
	return &Auditor{
		AuditDir: auditDir,
		log:      zerolog.Nop(),
	}
}

// SetLogger sets the logger (optional).
func (a *Auditor) SetLogger(l zerolog.Logger) {
	a.log = l
}

// Settings describes where a run read from and wrote to. Secrets must be
// masked by the caller.
type Settings struct {
	SourceKind       string `json:"source_kind"`
	SourcePath       string `json:"source_path"`
	Dialect          string `json:"miall_dialect"`
	ConnectionString string `json:"miall_connection"`
	CategoryName     string `json:"category_name"`
}

type Totals struct {
	Total    int `json:"total"`
	Updated  int `json:"updated"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

type FailedItem struct {
	Name    string          `json:"name"`
	Barcode string          `json:"barcode"`
	Price   decimal.Decimal `json:"price"`
	Error   string          `json:"error"`
}

// Report is the document written for a run.
type Report struct {
	RunID      string       `json:"run_id"`
	Status     string       `json:"status"`
	DryRun     bool         `json:"dry_run"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DurationMS int64        `json:"duration_ms"`
	Settings   Settings     `json:"settings"`
	Totals     Totals       `json:"totals"`
	Failures   []FailedItem `json:"failures"`
}

// NewReport builds the report document for result.
func NewReport(result *reconcile.Result, settings Settings) Report {
	report := Report{
		RunID:      result.RunID,
		Status:     string(result.Status()),
		DryRun:     result.DryRun,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		DurationMS: result.Duration().Milliseconds(),
		Settings:   settings,
		Totals: Totals{
			Total:    result.Total,
			Updated:  result.Updated,
			Inserted: result.Inserted,
			Failed:   result.Failed,
		},
		Failures: make([]FailedItem, 0, len(result.Failures)),
	}
	for _, f := range result.Failures {
		report.Failures = append(report.Failures, FailedItem{
			Name:    f.Good.Name,
			Barcode: f.Good.Barcode,
			Price:   f.Good.Price,
			Error:   f.Error(),
		})
	}
	return report
}

// SaveReport writes the report for result and returns the file name.
func (a *Auditor) SaveReport(result *reconcile.Result, settings Settings) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no result to report")
	}
	return a.SaveJSON(NewReport(result, settings))
}

// SaveJSON saves the provided data as JSON to a file with UUID4 filename
func (a *Auditor) SaveJSON(data any) (string, error) {
	if err := a.ensureAuditDir(); err != nil {
		return "", fmt.Errorf("failed to ensure report directory: %w", err)
	}

	filename := fmt.Sprintf("%s.json", uuid.New().String())
	path := filepath.Join(a.AuditDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	a.log.Debug().Str("path", path).Msg("Saved report")
	return filename, nil
}

// ensureAuditDir creates the report directory if it doesn't exist
func (a *Auditor) ensureAuditDir() error {
	if _, err := os.Stat(a.AuditDir); os.IsNotExist(err) {
		if err := os.MkdirAll(a.AuditDir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	return nil
}
