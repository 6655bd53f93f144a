package daemon

import (
	"context"
	"os"
	"time"

	"codeberg.org/mutker/suspendctl/internal/check"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

// HookConfig carries the pre-suspend hook settings.
type HookConfig struct {
	WakeupDelta time.Duration
	WokeUpFile  string
	LockFile    string
	LockTimeout time.Duration
}

// Presuspend is meant to be called from a system sleep hook right before
// suspension: it computes the next wake time from the wakeup probes,
// programs the wake alarm, and leaves the woke-up marker so the daemon
// resets its idle state on resume.
func Presuspend(ctx context.Context, wakeups []check.Wakeup, schedule ScheduleFunc, cfg HookConfig) error {
	logger.Info().Msg("Pre-suspend hook starting, trying to acquire lock")

	unlock, err := acquireLock(ctx, cfg.LockFile, cfg.LockTimeout)
	if err != nil {
		logger.Warn().Err(err).Msg("Hook unable to acquire lock, not informing daemon")
		return err
	}
	defer unlock()

	wakeAt, err := nextWakeup(ctx, wakeups, time.Now().UTC())
	if err != nil {
		return err
	}

	if !wakeAt.IsZero() {
		wakeAt = wakeAt.Add(-cfg.WakeupDelta)
		logger.Info().Time("wake_at", wakeAt).Msg("Scheduling next wake up")
		schedule(ctx, wakeAt)
	} else {
		logger.Info().Msg("No wake up required")
	}

	if err := os.WriteFile(cfg.WokeUpFile, nil, 0o644); err != nil {
		logger.Warn().Err(err).Str("path", cfg.WokeUpFile).Msg("Unable to create woke up file")
	}

	return nil
}
