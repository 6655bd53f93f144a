package check

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/process"

	"codeberg.org/mutker/suspendctl/internal/logger"
)

const defaultLoadThreshold = 2.5

// Processes reports activity while any of the configured process names
// is running.
type Processes struct {
	name      string
	processes []string
}

func NewProcesses(name string, opts Options) (Activity, error) {
	processes := opts.StringSlice("processes")
	if len(processes) == 0 {
		return nil, errFactory.WithMessage(ErrMissingOption, "no processes to check specified").WithData("processes")
	}

	return &Processes{name: name, processes: processes}, nil
}

func (c *Processes) Name() string { return c.name }

func (c *Processes) Check(ctx context.Context) (string, error) {
	running, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", Temporary("unable to list processes", err)
	}

	for _, proc := range running {
		// processes may exit while we iterate
		procName, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}

		for _, wanted := range c.processes {
			if procName == wanted {
				return "process " + wanted + " is running", nil
			}
		}
	}

	return "", nil
}

// Load reports activity while the 5 minute load average exceeds a
// threshold.
type Load struct {
	name      string
	threshold float64
}

func NewLoad(name string, opts Options) (Activity, error) {
	threshold, err := opts.Float("threshold", defaultLoadThreshold)
	if err != nil {
		return nil, err
	}

	return &Load{name: name, threshold: threshold}, nil
}

func (c *Load) Name() string { return c.name }

func (c *Load) Check(ctx context.Context) (string, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return "", Temporary("unable to read load average", err)
	}

	logger.Debug().Str("check", c.name).Float64("load5", avg.Load5).Msg("Current load")

	if avg.Load5 > c.threshold {
		return fmt.Sprintf("load %.2f > threshold %.2f", avg.Load5, c.threshold), nil
	}

	return "", nil
}

// Users reports activity while a logged-in user matches the configured
// name, terminal and host patterns.
type Users struct {
	name     string
	user     *regexp.Regexp
	terminal *regexp.Regexp
	host     *regexp.Regexp
}

func NewUsers(name string, opts Options) (Activity, error) {
	user, err := compileOption(opts, "name", ".*")
	if err != nil {
		return nil, err
	}
	terminal, err := compileOption(opts, "terminal", ".*")
	if err != nil {
		return nil, err
	}
	hostPattern, err := compileOption(opts, "host", ".*")
	if err != nil {
		return nil, err
	}

	return &Users{name: name, user: user, terminal: terminal, host: hostPattern}, nil
}

// compileOption compiles a regexp option, anchored at both ends so the
// pattern has to cover the whole value.
func compileOption(opts Options, key, fallback string) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile("^(?:" + opts.String(key, fallback) + ")$")
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err).WithData(key)
	}

	return pattern, nil
}

func (c *Users) Name() string { return c.name }

func (c *Users) Check(ctx context.Context) (string, error) {
	users, err := host.UsersWithContext(ctx)
	if err != nil {
		return "", Temporary("unable to list logged-in users", err)
	}

	for _, entry := range users {
		if c.user.MatchString(entry.User) &&
			c.terminal.MatchString(entry.Terminal) &&
			c.host.MatchString(entry.Host) {
			return fmt.Sprintf("user %s is logged in on terminal %s from %s",
				entry.User, entry.Terminal, entry.Host), nil
		}
	}

	return "", nil
}
