// Package systemd talks to logind and the systemd manager over the
// system bus. Callers classify failures themselves; an unreachable bus is
// usually a temporary condition.
package systemd

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"codeberg.org/mutker/suspendctl/internal/errors"
)

const (
	ErrBusUnavailable = errors.ErrorCode("systemd_bus_unavailable")
	ErrBusCall        = errors.ErrorCode("systemd_bus_call_failed")
)

// Timers running after boot report uint64 max instead of a next elapse
// time.
const unsetTimestamp = uint64(math.MaxUint64)

var errFactory = errors.New()

// Session is a logind session together with the properties the checks
// care about.
type Session struct {
	ID       string
	User     string
	Type     string
	State    string
	Class    string
	Display  string
	IdleHint bool
}

// ListSessions enumerates logind sessions and resolves their properties.
func ListSessions(ctx context.Context) ([]Session, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errFactory.Wrap(ErrBusUnavailable, err)
	}

	login1 := conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")

	var listed []struct {
		ID   string
		UID  uint32
		User string
		Seat string
		Path dbus.ObjectPath
	}
	if err := login1.CallWithContext(ctx, "org.freedesktop.login1.Manager.ListSessions", 0).Store(&listed); err != nil {
		return nil, errFactory.Wrap(ErrBusCall, err).WithData("ListSessions")
	}

	sessions := make([]Session, 0, len(listed))
	for i := range listed {
		obj := conn.Object("org.freedesktop.login1", listed[i].Path)

		session := Session{ID: listed[i].ID, User: listed[i].User}
		if err := sessionProperties(obj, &session); err != nil {
			return nil, err
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}

func sessionProperties(obj dbus.BusObject, session *Session) error {
	stringProps := map[string]*string{
		"Type":    &session.Type,
		"State":   &session.State,
		"Class":   &session.Class,
		"Display": &session.Display,
	}
	for name, target := range stringProps {
		variant, err := obj.GetProperty("org.freedesktop.login1.Session." + name)
		if err != nil {
			return errFactory.Wrap(ErrBusCall, err).WithData(name)
		}
		if s, ok := variant.Value().(string); ok {
			*target = s
		}
	}

	variant, err := obj.GetProperty("org.freedesktop.login1.Session.IdleHint")
	if err != nil {
		return errFactory.Wrap(ErrBusCall, err).WithData("IdleHint")
	}
	if b, ok := variant.Value().(bool); ok {
		session.IdleHint = b
	}

	return nil
}

// NextTimerExecutions returns the next elapse time for every systemd
// timer unit that has one, keyed by unit name.
func NextTimerExecutions(ctx context.Context, now time.Time) (map[string]time.Time, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errFactory.Wrap(ErrBusUnavailable, err)
	}

	manager := conn.Object("org.freedesktop.systemd1", "/org/freedesktop/systemd1")

	var units []struct {
		Name        string
		Description string
		LoadState   string
		ActiveState string
		SubState    string
		Followed    string
		Path        dbus.ObjectPath
		JobID       uint32
		JobType     string
		JobPath     dbus.ObjectPath
	}
	if err := manager.CallWithContext(ctx, "org.freedesktop.systemd1.Manager.ListUnits", 0).Store(&units); err != nil {
		return nil, errFactory.Wrap(ErrBusCall, err).WithData("ListUnits")
	}

	executions := make(map[string]time.Time)
	for i := range units {
		if !strings.HasSuffix(units[i].Name, ".timer") {
			continue
		}

		obj := conn.Object("org.freedesktop.systemd1", units[i].Path)

		realtime, err := timerProperty(obj, "NextElapseUSecRealtime")
		if err != nil {
			return nil, err
		}
		monotonic, err := timerProperty(obj, "NextElapseUSecMonotonic")
		if err != nil {
			return nil, err
		}

		switch {
		case realtime != 0:
			executions[units[i].Name] = time.UnixMicro(int64(realtime)).UTC()
		case monotonic != 0:
			executions[units[i].Name] = now.Add(time.Duration(monotonic) * time.Microsecond)
		}
	}

	return executions, nil
}

func timerProperty(obj dbus.BusObject, name string) (uint64, error) {
	variant, err := obj.GetProperty("org.freedesktop.systemd1.Timer." + name)
	if err != nil {
		return 0, errFactory.Wrap(ErrBusCall, err).WithData(name)
	}

	value, ok := variant.Value().(uint64)
	if !ok || value == unsetTimestamp {
		return 0, nil
	}

	return value, nil
}
