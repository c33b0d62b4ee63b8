package reconcile

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTrackerRows is how many item rows a Tracker keeps by default.
const DefaultTrackerRows = 200

// ItemRow is one finished product as shown in the result grid.
type ItemRow struct {
	Index     int             `json:"index"`
	Name      string          `json:"name"`
	Barcode   string          `json:"barcode"`
	Price     decimal.Decimal `json:"price"`
	Succeeded bool            `json:"succeeded"`
	Result    string          `json:"result"`
	Time      time.Time       `json:"time"`
}

// Status is a point-in-time view of a run built from its events.
type Status struct {
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Updated   int       `json:"updated"`
	Inserted  int       `json:"inserted"`
	Failed    int       `json:"failed"`
	Rows      []ItemRow `json:"rows"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker folds progress events into a Status. It is safe for concurrent
// use, so one goroutine can feed events while others read snapshots.
type Tracker struct {
	mu      sync.RWMutex
	maxRows int
	status  Status
}

// NewTracker keeps at most maxRows item rows, the most recent ones.
func NewTracker(maxRows int) *Tracker {
	if maxRows <= 0 {
		maxRows = DefaultTrackerRows
	}
	return &Tracker{
		maxRows: maxRows,
		status:  Status{Phase: PhaseIdle, Rows: []ItemRow{}},
	}
}

// Observe applies ev. It has the ProgressFunc signature.
func (t *Tracker) Observe(ev ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Phase == PhaseReading {
		t.status = Status{Rows: []ItemRow{}}
	}

	t.status.Phase = ev.Phase
	t.status.Message = ev.Message
	t.status.Current = ev.Current
	t.status.Total = ev.Total
	t.status.UpdatedAt = ev.Time

	if !ev.ItemEnd() || ev.Good == nil {
		return
	}

	row := ItemRow{
		Index:     ev.ItemIndex,
		Name:      ev.Good.Name,
		Barcode:   ev.Good.Barcode,
		Price:     ev.Good.Price,
		Succeeded: *ev.Succeeded,
		Result:    ev.ResultText,
		Time:      ev.Time,
	}
	switch {
	case !row.Succeeded:
		t.status.Failed++
	case row.Result == "inserted":
		t.status.Inserted++
	case row.Result == "updated":
		t.status.Updated++
	}

	t.status.Rows = append(t.status.Rows, row)
	if over := len(t.status.Rows) - t.maxRows; over > 0 {
		t.status.Rows = append([]ItemRow(nil), t.status.Rows[over:]...)
	}
}

// Reset clears the previous run so a run that ends before reading starts
// from an empty status.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = Status{Phase: PhaseIdle, Rows: []ItemRow{}}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.status
	s.Rows = make([]ItemRow, len(t.status.Rows))
	copy(s.Rows, t.status.Rows)
	return s
}
