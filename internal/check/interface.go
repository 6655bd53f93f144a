// Package check defines the probe contracts the engine schedules and the
// registry that builds configured probe instances. Probes answer one of
// two questions: is the host in use right now, and when does the host
// next need to be awake. They own no orchestration logic.
package check

import (
	"context"
	"time"
)

// Activity is a probe reporting whether the host is currently in use.
// Check returns a non-empty reason when activity is detected and an empty
// string when the host looks idle. Failures are classified with Temporary
// or Severe; anything else is treated as severe by the engine.
type Activity interface {
	Name() string
	Check(ctx context.Context) (string, error)
}

// Wakeup is a probe reporting when the host next needs to be awake.
// NextWakeup returns the zero time when the probe has no opinion. Returned
// times are absolute UTC.
type Wakeup interface {
	Name() string
	NextWakeup(ctx context.Context, now time.Time) (time.Time, error)
}
