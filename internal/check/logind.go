package check

import (
	"context"

	"codeberg.org/mutker/suspendctl/internal/logger"
	"codeberg.org/mutker/suspendctl/internal/systemd"
)

// LogindSessionsIdle reports activity while a logind session of the
// configured type, state and class does not carry the idle hint.
type LogindSessionsIdle struct {
	name    string
	types   map[string]bool
	states  map[string]bool
	classes map[string]bool
}

func NewLogindSessionsIdle(name string, opts Options) (Activity, error) {
	return &LogindSessionsIdle{
		name:    name,
		types:   optionSet(opts, "types", []string{"tty", "x11", "wayland"}),
		states:  optionSet(opts, "states", []string{"active", "online"}),
		classes: optionSet(opts, "classes", []string{"user"}),
	}, nil
}

func optionSet(opts Options, key string, fallback []string) map[string]bool {
	values := opts.StringSlice(key)
	if len(values) == 0 {
		values = fallback
	}

	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}

	return set
}

func (c *LogindSessionsIdle) Name() string { return c.name }

func (c *LogindSessionsIdle) Check(ctx context.Context) (string, error) {
	sessions, err := systemd.ListSessions(ctx)
	if err != nil {
		return "", Temporary("unable to list logind sessions", err)
	}

	for _, session := range sessions {
		logger.Debug().
			Str("check", c.name).
			Str("session", session.ID).
			Str("type", session.Type).
			Str("state", session.State).
			Bool("idle_hint", session.IdleHint).
			Msg("Inspecting logind session")

		if !c.types[session.Type] || !c.states[session.State] || !c.classes[session.Class] {
			continue
		}

		if !session.IdleHint {
			return "login session " + session.ID + " is not idle", nil
		}
	}

	return "", nil
}
