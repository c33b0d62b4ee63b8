package reconcile

import (
	"time"

	"github.com/mrlokans/scalesync/internal/entities"
)

// Phase is the state of a run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseReading   Phase = "reading_source"
	PhaseResolving Phase = "resolving_category"
	PhaseSyncing   Phase = "syncing"
	PhaseDone      Phase = "done"
	PhaseCancelled Phase = "cancelled"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether no further events follow a phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseCancelled || p == PhaseFailed
}

// ProgressEvent describes one step of a run. Item events carry the product
// and its 1-based index; item end events also carry Succeeded and ResultText.
type ProgressEvent struct {
	Phase      Phase          `json:"phase"`
	Message    string         `json:"message"`
	Current    int            `json:"current"`
	Total      int            `json:"total"`
	Good       *entities.Good `json:"good,omitempty"`
	ItemIndex  int            `json:"item_index,omitempty"`
	Succeeded  *bool          `json:"succeeded,omitempty"`
	ResultText string         `json:"result_text,omitempty"`
	Time       time.Time      `json:"time"`
}

// ItemEnd reports whether the event closes an item.
func (e ProgressEvent) ItemEnd() bool {
	return e.ItemIndex > 0 && e.Succeeded != nil
}

// ProgressFunc receives progress events. It is called synchronously from the
// run loop; wrap it with NewAsyncSink when the consumer may be slow.
type ProgressFunc func(ProgressEvent)
