package check

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
	"codeberg.org/mutker/suspendctl/internal/systemd"
)

const (
	defaultXIdleTimeout = 600 * time.Second

	x11SocketGlob   = "/tmp/.X11-unix/X*"
	x11SocketPrefix = "/tmp/.X11-unix/X"
)

type xSession struct {
	display int
	user    string
}

// XIdleTime reports activity while a local X session has been idle for
// less than the configured timeout. Idle times are read with xprintidle,
// executed as the session owner.
type XIdleTime struct {
	name          string
	timeout       time.Duration
	sessions      func(ctx context.Context) ([]xSession, error)
	ignoreProcess *regexp.Regexp
	ignoreUsers   *regexp.Regexp
}

func NewXIdleTime(name string, opts Options) (Activity, error) {
	timeout, err := opts.Seconds("timeout", defaultXIdleTimeout)
	if err != nil {
		return nil, err
	}

	// the fallbacks match nothing
	ignoreProcess, err := compileOption(opts, "ignore_if_process", "a^")
	if err != nil {
		return nil, err
	}
	ignoreUsers, err := compileOption(opts, "ignore_users", "a^")
	if err != nil {
		return nil, err
	}

	c := &XIdleTime{
		name:          name,
		timeout:       timeout,
		ignoreProcess: ignoreProcess,
		ignoreUsers:   ignoreUsers,
	}

	switch method := opts.String("method", "sockets"); method {
	case "sockets":
		c.sessions = listSessionsSockets
	case "logind":
		c.sessions = listSessionsLogind
	default:
		return nil, errFactory.WithMessage(ErrInvalidOptions, "unknown session discovery method").WithData(method)
	}

	return c, nil
}

func (c *XIdleTime) Name() string { return c.name }

func (c *XIdleTime) Check(ctx context.Context) (string, error) {
	sessions, err := c.sessions(ctx)
	if err != nil {
		return "", Temporary("unable to list X sessions", err)
	}

	for _, session := range sessions {
		if c.ignoreUsers.MatchString(session.user) {
			logger.Debug().Str("check", c.name).Str("user", session.user).Msg("Skipping user due to request")
			continue
		}

		skip, err := c.hasIgnoredProcess(ctx, session.user)
		if err != nil {
			return "", err
		}
		if skip {
			continue
		}

		idle, err := c.sessionIdleTime(ctx, session)
		if err != nil {
			return "", err
		}

		logger.Debug().
			Str("check", c.name).
			Int("display", session.display).
			Str("user", session.user).
			Dur("idle", idle).
			Msg("Session idle time")

		if idle < c.timeout {
			return fmt.Sprintf("X session %d of user %s has idle time %.0fs < threshold %.0fs",
				session.display, session.user, idle.Seconds(), c.timeout.Seconds()), nil
		}
	}

	return "", nil
}

// hasIgnoredProcess reports whether the user runs a process matching the
// ignore pattern, in which case the idle time is assumed to be tampered
// with and the session is skipped.
func (c *XIdleTime) hasIgnoredProcess(ctx context.Context, sessionUser string) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, Temporary("unable to list processes", err)
	}

	for _, proc := range procs {
		owner, err := proc.UsernameWithContext(ctx)
		if err != nil || owner != sessionUser {
			continue
		}

		procName, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}

		if c.ignoreProcess.MatchString(procName) {
			logger.Debug().
				Str("check", c.name).
				Str("process", procName).
				Str("user", sessionUser).
				Msg("Process matches ignore pattern, skipping idle time check for this user")
			return true, nil
		}
	}

	return false, nil
}

func (c *XIdleTime) sessionIdleTime(ctx context.Context, session xSession) (time.Duration, error) {
	usr, err := user.Lookup(session.user)
	if err != nil {
		return 0, Temporary("unable to resolve user "+session.user, err)
	}

	cmd := exec.CommandContext(ctx, "sudo", "-u", session.user, "xprintidle")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DISPLAY=:%d", session.display),
		"XAUTHORITY="+filepath.Join(usr.HomeDir, ".Xauthority"))

	output, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return 0, Severe("sudo or xprintidle binary cannot be found", err)
		}

		return 0, Temporary(fmt.Sprintf("unable to determine the idle time for display %d", session.display), err)
	}

	millis, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, Temporary("unable to parse xprintidle output", err)
	}

	return time.Duration(millis * float64(time.Millisecond)), nil
}

// listSessionsSockets lists X sessions by iterating the X sockets,
// assuming servers run under the user owning the socket.
func listSessionsSockets(_ context.Context) ([]xSession, error) {
	sockets, err := filepath.Glob(x11SocketGlob)
	if err != nil {
		return nil, err
	}

	var sessions []xSession
	for _, sock := range sockets {
		display, err := strconv.Atoi(strings.TrimPrefix(sock, x11SocketPrefix))
		if err != nil {
			logger.Warn().Str("socket", sock).Msg("Cannot parse display number from socket, skipping")
			continue
		}

		info, err := os.Stat(sock)
		if err != nil {
			logger.Warn().Err(err).Str("socket", sock).Msg("Cannot stat socket, skipping")
			continue
		}

		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			continue
		}
		owner, err := user.LookupId(strconv.FormatUint(uint64(stat.Uid), 10))
		if err != nil {
			logger.Warn().Err(err).Str("socket", sock).Msg("Cannot get the owning user from socket, skipping")
			continue
		}

		sessions = append(sessions, xSession{display: display, user: owner.Username})
	}

	return sessions, nil
}

// listSessionsLogind lists X sessions using logind, assuming sessions
// carry a Display property.
func listSessionsLogind(ctx context.Context) ([]xSession, error) {
	listed, err := systemd.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	var sessions []xSession
	for _, session := range listed {
		if session.User == "" || session.Display == "" {
			logger.Debug().Str("session", session.ID).Msg("Skipping session without user name and display")
			continue
		}

		display, err := strconv.Atoi(strings.TrimPrefix(session.Display, ":"))
		if err != nil {
			logger.Warn().Str("session", session.ID).Str("display", session.Display).Msg("Unable to parse display from session")
			continue
		}

		sessions = append(sessions, xSession{display: display, user: session.User})
	}

	return sessions, nil
}
