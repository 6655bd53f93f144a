// Package history persists one row per engine iteration so an operator
// can reconstruct, after the fact, why the host did or did not suspend.
// It is a write-only audit log; the engine never reads it back.
package history

import "time"

// Actions taken by the engine, one per iteration.
const (
	ActionActive           = "active"
	ActionWaiting          = "waiting"
	ActionDeferred         = "deferred"
	ActionSuspend          = "suspend"
	ActionSuspendScheduled = "suspend_scheduled"
	ActionWokeUp           = "woke_up"
)

// Decision is the outcome of a single engine iteration.
type Decision struct {
	Timestamp time.Time
	Active    bool
	Check     string // name of the probe that detected activity, if any
	IdleFor   time.Duration
	WakeAt    time.Time // zero when no wake was computed
	Action    string
}

// Recorder stores iteration decisions.
type Recorder interface {
	Record(decision *Decision) error
	Close() error
}

type noopRecorder struct{}

// NewNoop returns a Recorder that discards everything; used when the
// decision history is disabled.
func NewNoop() Recorder {
	return noopRecorder{}
}

func (noopRecorder) Record(*Decision) error { return nil }
func (noopRecorder) Close() error           { return nil }
