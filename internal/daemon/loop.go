package daemon

import (
	"context"
	"os"
	"time"

	"github.com/gofrs/flock"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

const (
	ErrLockTimeout = errors.ErrorCode("daemon_lock_timeout")

	lockRetryDelay = 500 * time.Millisecond
)

var errFactory = errors.New()

// LoopConfig carries the outer loop settings.
type LoopConfig struct {
	Interval    time.Duration
	RunFor      time.Duration // zero means run forever
	WokeUpFile  string
	LockFile    string
	LockTimeout time.Duration
}

// Loop runs iterations until the context is cancelled or, with RunFor
// set, the wall-clock budget is exhausted. Each iteration runs under the
// lock shared with the pre-suspend hook; failing to acquire it skips the
// iteration with a warning.
func Loop(ctx context.Context, processor *Processor, cfg LoopConfig) error {
	startedAt := time.Now()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		if err := loopIteration(ctx, processor, cfg); err != nil {
			return err
		}

		if cfg.RunFor > 0 && time.Since(startedAt) >= cfg.RunFor {
			logger.Info().Dur("run_for", cfg.RunFor).Msg("Run budget exhausted, terminating")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func loopIteration(ctx context.Context, processor *Processor, cfg LoopConfig) error {
	logger.Debug().Msg("New iteration, trying to acquire lock")

	unlock, err := acquireLock(ctx, cfg.LockFile, cfg.LockTimeout)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to acquire lock, skipping iteration")
		return nil
	}
	defer unlock()

	justWokeUp := consumeWokeUpFile(cfg.WokeUpFile)

	return processor.Iteration(ctx, time.Now().UTC(), justWokeUp)
}

// acquireLock takes the iteration lock, retrying until the timeout.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	lock := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, errFactory.Wrap(ErrLockTimeout, err).WithData(path)
	}
	if !locked {
		return nil, errFactory.WithMessage(ErrLockTimeout, "lock is held elsewhere").WithData(path)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Unable to release lock")
		}
	}, nil
}

// consumeWokeUpFile reports whether the marker left by the pre-suspend
// hook exists, removing it if so.
func consumeWokeUpFile(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}

	logger.Debug().Str("path", path).Msg("Removing woke up file")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", path).Msg("Unable to remove woke up file")
	}

	return true
}
