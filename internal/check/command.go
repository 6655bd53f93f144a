package check

import (
	"context"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/suspendctl/internal/action"
)

// Shells report 127 when the command to run does not exist. Such a
// failure can never recover on its own, so it is severe.
const exitCommandNotFound = 127

// ExternalCommand reports activity when a configured shell command exits
// zero.
type ExternalCommand struct {
	name    string
	command string
}

func NewExternalCommand(name string, opts Options) (Activity, error) {
	command, err := opts.RequiredString("command")
	if err != nil {
		return nil, err
	}

	return &ExternalCommand{name: name, command: command}, nil
}

func (c *ExternalCommand) Name() string { return c.name }

func (c *ExternalCommand) Check(ctx context.Context) (string, error) {
	err := action.Run(ctx, c.command)
	if err == nil {
		return "command " + c.command + " succeeded", nil
	}

	if action.ExitCode(err) == exitCommandNotFound {
		return "", Severe("command does not exist: "+c.command, err)
	}

	return "", nil
}

// CommandWakeup determines the next wake time from an external command.
// The command must print a UTC timestamp in epoch seconds, or nothing
// when no wake up is planned.
type CommandWakeup struct {
	name    string
	command string
}

func NewCommandWakeup(name string, opts Options) (Wakeup, error) {
	command, err := opts.RequiredString("command")
	if err != nil {
		return nil, err
	}

	return &CommandWakeup{name: name, command: command}, nil
}

func (c *CommandWakeup) Name() string { return c.name }

func (c *CommandWakeup) NextWakeup(ctx context.Context, _ time.Time) (time.Time, error) {
	output, err := action.Output(ctx, c.command)
	if err != nil {
		if action.ExitCode(err) == exitCommandNotFound {
			return time.Time{}, Severe("command does not exist: "+c.command, err)
		}

		return time.Time{}, Temporary("unable to call the configured command", err)
	}

	firstLine, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if firstLine == "" {
		return time.Time{}, nil
	}

	return parseEpoch(firstLine)
}

// parseEpoch turns a (possibly fractional) epoch-seconds string into an
// absolute UTC time.
func parseEpoch(value string) (time.Time, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return time.Time{}, Temporary("output cannot be interpreted as a timestamp: "+value, err)
	}

	return time.Unix(0, int64(seconds*float64(time.Second))).UTC(), nil
}
