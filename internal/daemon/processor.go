// Package daemon implements the suspend orchestration engine: the
// per-iteration decision state machine, the outer loop, and the
// pre-suspend hook.
package daemon

import (
	"context"
	"time"

	"codeberg.org/mutker/suspendctl/internal/check"
	"codeberg.org/mutker/suspendctl/internal/history"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

// SuspendFunc performs the suspend transition. A zero wakeAt means no
// wake has been scheduled.
type SuspendFunc func(ctx context.Context, wakeAt time.Time) error

// ScheduleFunc programs the external wake alarm.
type ScheduleFunc func(ctx context.Context, wakeAt time.Time)

// ProcessorConfig carries the engine timing knobs.
type ProcessorConfig struct {
	IdleTime     time.Duration
	MinSleepTime time.Duration
	WakeupDelta  time.Duration
	AllChecks    bool
}

// Processor decides, once per iteration, whether to keep waiting, to
// suspend, or to suspend with a scheduled wake. The only state carried
// between iterations is the idle-since timestamp.
type Processor struct {
	activities []check.Activity
	wakeups    []check.Wakeup
	cfg        ProcessorConfig
	suspend    SuspendFunc
	schedule   ScheduleFunc
	recorder   history.Recorder

	// zero while the system is active
	idleSince time.Time
}

func NewProcessor(
	activities []check.Activity,
	wakeups []check.Wakeup,
	cfg ProcessorConfig,
	suspend SuspendFunc,
	schedule ScheduleFunc,
	recorder history.Recorder,
) *Processor {
	if recorder == nil {
		recorder = history.NewNoop()
	}

	return &Processor{
		activities: activities,
		wakeups:    wakeups,
		cfg:        cfg,
		suspend:    suspend,
		schedule:   schedule,
		recorder:   recorder,
	}
}

// IdleSince returns the time the system became idle, or the zero time
// while it is active.
func (p *Processor) IdleSince() time.Time {
	return p.idleSince
}

func (p *Processor) resetState(reason string) {
	logger.Info().Str("reason", reason).Msg("Resetting state")
	p.idleSince = time.Time{}
}

// Iteration runs one pass of the decision state machine. It returns a
// non-nil error only for severe check failures, which must terminate the
// process.
func (p *Processor) Iteration(ctx context.Context, now time.Time, justWokeUp bool) error {
	logger.Info().Msg("Starting new check iteration")

	// post-wake state is unknown, treat it as active and probe nothing
	if justWokeUp {
		p.resetState("Just woke up from suspension")
		return p.record(now, history.Decision{Action: history.ActionWokeUp})
	}

	active, matchedBy, err := evaluateActivities(ctx, p.activities, p.cfg.AllChecks)
	if err != nil {
		return err
	}
	logger.Debug().Bool("active", active).Msg("All activity checks have been executed")

	if active {
		p.resetState("System is active")
		return p.record(now, history.Decision{Active: true, Check: matchedBy, Action: history.ActionActive})
	}

	if p.idleSince.IsZero() || now.Before(p.idleSince) {
		p.idleSince = now
	}

	idleFor := now.Sub(p.idleSince)
	logger.Info().
		Time("idle_since", p.idleSince).
		Dur("idle_for", idleFor).
		Msg("System is idle")

	if idleFor < p.cfg.IdleTime {
		logger.Info().
			Dur("required", p.cfg.IdleTime).
			Dur("current", idleFor).
			Msg("Desired idle time not reached yet")
		return p.record(now, history.Decision{IdleFor: idleFor, Action: history.ActionWaiting})
	}

	logger.Info().Msg("System is idle long enough")

	wakeAt, err := nextWakeup(ctx, p.wakeups, now)
	if err != nil {
		return err
	}

	if !wakeAt.IsZero() {
		wakeAt = wakeAt.Add(-p.cfg.WakeupDelta)
		logger.Debug().Time("wake_at", wakeAt).Msg("System wakeup required, delta applied")

		if wakeAt.Sub(now) < p.cfg.MinSleepTime {
			logger.Info().
				Dur("would_sleep", wakeAt.Sub(now)).
				Dur("minimum", p.cfg.MinSleepTime).
				Msg("Sleep window too short, not suspending")
			return p.record(now, history.Decision{IdleFor: idleFor, WakeAt: wakeAt, Action: history.ActionDeferred})
		}

		logger.Info().Time("wake_at", wakeAt).Msg("Scheduling wakeup")
		p.schedule(ctx, wakeAt)
	} else {
		logger.Debug().Msg("No automatic wakeup required")
	}

	p.resetState("Going to suspend")

	action := history.ActionSuspend
	if !wakeAt.IsZero() {
		action = history.ActionSuspendScheduled
	}
	if err := p.record(now, history.Decision{IdleFor: idleFor, WakeAt: wakeAt, Action: action}); err != nil {
		return err
	}

	// a failing suspend command is an iteration failure, not fatal
	if err := p.suspend(ctx, wakeAt); err != nil {
		logger.Error().Err(err).Msg("Suspend failed, retrying on a later iteration")
	}

	return nil
}

func (p *Processor) record(now time.Time, decision history.Decision) error {
	decision.Timestamp = now
	if err := p.recorder.Record(&decision); err != nil {
		logger.Warn().Err(err).Msg("Unable to record iteration decision")
	}

	return nil
}
