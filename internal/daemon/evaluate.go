package daemon

import (
	"context"
	"time"

	"codeberg.org/mutker/suspendctl/internal/check"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

// evaluateActivities runs the activity probes in registry order and
// reports whether the system is in use, together with the name of the
// probe that decided it. Under allChecks every probe runs for diagnostic
// visibility; otherwise evaluation stops at the first match. Temporary
// probe failures count as activity so uncertainty never suspends the
// host. Severe failures are returned and end the process.
func evaluateActivities(ctx context.Context, activities []check.Activity, allChecks bool) (bool, string, error) {
	matched := false
	matchedBy := ""

	for _, activity := range activities {
		logger.Debug().Str("check", activity.Name()).Msg("Executing activity check")

		reason, err := activity.Check(ctx)
		if err != nil {
			if !check.IsTemporary(err) {
				return false, "", err
			}

			logger.Warn().Err(err).Str("check", activity.Name()).Msg("Check failed temporarily, assuming activity")
			reason = "check failed temporarily"
		}

		if reason == "" {
			continue
		}

		logger.Info().Str("check", activity.Name()).Str("reason", reason).Msg("Check matched")
		if !matched {
			matched = true
			matchedBy = activity.Name()
		}

		if !allChecks {
			logger.Debug().Msg("Skipping further checks")
			break
		}
	}

	return matched, matchedBy, nil
}

// nextWakeup asks every wakeup probe for its next wake time and reduces
// the answers to the earliest one. Zero means no scheduled wake.
// Temporary failures and times not in the future are skipped with a
// warning; severe failures are returned.
func nextWakeup(ctx context.Context, wakeups []check.Wakeup, now time.Time) (time.Time, error) {
	var earliest time.Time

	for _, wakeup := range wakeups {
		at, err := wakeup.NextWakeup(ctx, now)
		if err != nil {
			if !check.IsTemporary(err) {
				return time.Time{}, err
			}

			logger.Warn().Err(err).Str("check", wakeup.Name()).Msg("Wakeup check failed, ignoring")
			continue
		}

		if at.IsZero() {
			continue
		}
		if !at.After(now) {
			logger.Warn().
				Str("check", wakeup.Name()).
				Time("wake_at", at).
				Time("now", now).
				Msg("Wakeup check returned a time not in the future, ignoring")
			continue
		}

		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}

	return earliest, nil
}
