package history

import "time"

// Outcome describes what a sync run did to one setup.
type Outcome string

const (
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeUpdated    Outcome = "updated"
	OutcomeNoSchedule Outcome = "no_schedule"
	OutcomeFailed     Outcome = "failed"
)

// DefaultRetention is the number of runs kept after pruning.
const DefaultRetention = 2000

// SetupOutcome is the per-setup result of a sync run.
type SetupOutcome struct {
	SetupID    int64   `json:"setup_id"`
	Outcome    Outcome `json:"outcome"`
	ShownCount int     `json:"shown_count"`
	Error      string  `json:"error,omitempty"`
}

// Run is one recorded sync invocation.
type Run struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	LiveCount  int            `json:"live_count"`
	Writes     int            `json:"writes"`
	Failures   int            `json:"failures"`
	Reported   bool           `json:"reported"`
	Error      string         `json:"error,omitempty"`
	Setups     []SetupOutcome `json:"setups"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run completed without any failure.
func (r Run) Succeeded() bool {
	return r.Failures == 0 && r.Error == ""
}
