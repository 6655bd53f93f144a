package check

import (
	"context"
	"regexp"
	"time"

	"codeberg.org/mutker/suspendctl/internal/systemd"
)

// SystemdTimer wakes the system for the next execution of the systemd
// timer units whose names match the configured pattern.
type SystemdTimer struct {
	name  string
	match *regexp.Regexp
}

func NewSystemdTimer(name string, opts Options) (Wakeup, error) {
	rawMatch, err := opts.RequiredString("match")
	if err != nil {
		return nil, err
	}

	// matches at the start of the unit name
	match, err := regexp.Compile("^(?:" + rawMatch + ")")
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err).WithData("match")
	}

	return &SystemdTimer{name: name, match: match}, nil
}

func (c *SystemdTimer) Name() string { return c.name }

func (c *SystemdTimer) NextWakeup(ctx context.Context, now time.Time) (time.Time, error) {
	executions, err := systemd.NextTimerExecutions(ctx, now)
	if err != nil {
		return time.Time{}, Temporary("unable to list systemd timers", err)
	}

	var earliest time.Time
	for unit, next := range executions {
		if !c.match.MatchString(unit) {
			continue
		}
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}

	return earliest, nil
}
