// Package action is the boundary between the engine and the host: shell
// command templates executed synchronously, reporting only their exit
// status. The engine never runs anything else.
package action

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

const (
	timestampToken = "{timestamp}"
	isoToken       = "{iso}"
)

const (
	ErrCommandFailed = errors.ErrorCode("action_command_failed")
	ErrNoCommand     = errors.ErrorCode("action_no_command")
)

var errFactory = errors.New()

// Expand substitutes the wake timestamp into a command template. The
// {timestamp} token becomes seconds since the epoch (fractional) and
// {iso} an RFC 3339 rendering of the same instant.
func Expand(template string, wakeAt time.Time) string {
	expanded := strings.ReplaceAll(template, timestampToken,
		fmt.Sprintf("%.3f", float64(wakeAt.UnixNano())/float64(time.Second)))

	return strings.ReplaceAll(expanded, isoToken, wakeAt.UTC().Format(time.RFC3339))
}

// Run executes a shell command synchronously. A nil return means the
// command exited zero.
func Run(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errFactory.Wrap(ErrCommandFailed, err).WithData(command)
	}

	return nil
}

// Output executes a shell command synchronously and returns its standard
// output.
func Output(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", errFactory.Wrap(ErrCommandFailed, err).WithData(command)
	}

	return string(out), nil
}

// ExitCode extracts the exit status from a Run or Output failure, or -1
// when the command did not run at all.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

// Suspender performs the suspend transition: an optional notification
// command followed by the suspend command itself. Failures are logged and
// reported but never escalate; the caller retries on a later iteration.
type Suspender struct {
	suspendCmd        string
	notifyCmdWakeup   string
	notifyCmdNoWakeup string
}

func NewSuspender(suspendCmd, notifyCmdWakeup, notifyCmdNoWakeup string) *Suspender {
	return &Suspender{
		suspendCmd:        suspendCmd,
		notifyCmdWakeup:   notifyCmdWakeup,
		notifyCmdNoWakeup: notifyCmdNoWakeup,
	}
}

// Suspend notifies and then suspends. A zero wakeAt means no wake has
// been scheduled.
func (s *Suspender) Suspend(ctx context.Context, wakeAt time.Time) error {
	s.notify(ctx, wakeAt)

	logger.Info().
		Str("command", s.suspendCmd).
		Time("wake_at", wakeAt).
		Msg("Suspending system")

	if err := Run(ctx, s.suspendCmd); err != nil {
		logger.Error().Err(err).Str("command", s.suspendCmd).Msg("Suspend command failed")
		return err
	}

	return nil
}

func (s *Suspender) notify(ctx context.Context, wakeAt time.Time) {
	var command string
	switch {
	case !wakeAt.IsZero() && s.notifyCmdWakeup != "":
		command = Expand(s.notifyCmdWakeup, wakeAt)
	case wakeAt.IsZero() && s.notifyCmdNoWakeup != "":
		command = s.notifyCmdNoWakeup
	default:
		logger.Debug().Msg("No suitable notification command configured")
		return
	}

	logger.Info().Str("command", command).Msg("Notifying before suspend")
	if err := Run(ctx, command); err != nil {
		logger.Warn().Err(err).Str("command", command).Msg("Notification command failed")
	}
}

// Scheduler programs the external wake alarm. A scheduling failure is a
// warning only; the host may oversleep, but suspension still proceeds.
type Scheduler struct {
	wakeupCmd string
}

func NewScheduler(wakeupCmd string) *Scheduler {
	return &Scheduler{wakeupCmd: wakeupCmd}
}

func (s *Scheduler) Schedule(ctx context.Context, wakeAt time.Time) {
	if s.wakeupCmd == "" {
		logger.Warn().Time("wake_at", wakeAt).Msg("Wake requested but no wakeup command configured")
		return
	}

	command := Expand(s.wakeupCmd, wakeAt)
	logger.Info().Str("command", command).Time("wake_at", wakeAt).Msg("Scheduling wakeup")

	if err := Run(ctx, command); err != nil {
		logger.Warn().Err(err).Str("command", command).Msg("Unable to schedule wakeup, the system might not wake up in time")
	}
}
