package check

import (
	"sort"
	"strings"

	"codeberg.org/mutker/suspendctl/internal/logger"
)

// ActivityFactory builds one configured activity probe instance.
type ActivityFactory func(name string, opts Options) (Activity, error)

// WakeupFactory builds one configured wakeup probe instance.
type WakeupFactory func(name string, opts Options) (Wakeup, error)

// Class names are matched case-insensitively against these tables. The
// table is the single binding point between configuration and code; no
// reflection is involved.
var activityClasses = map[string]ActivityFactory{
	"activecalendarevent": NewActiveCalendarEvent,
	"activeconnection":    NewActiveConnection,
	"externalcommand":     NewExternalCommand,
	"gpu":                 NewGpu,
	"jsonpath":            NewJSONPath,
	"kodi":                NewKodi,
	"kodiidletime":        NewKodiIdleTime,
	"lastlogactivity":     NewLastLogActivity,
	"load":                NewLoad,
	"logindsessionsidle":  NewLogindSessionsIdle,
	"mpd":                 NewMpd,
	"networkbandwidth":    NewNetworkBandwidth,
	"ping":                NewPing,
	"processes":           NewProcesses,
	"smb":                 NewSmb,
	"users":               NewUsers,
	"xidletime":           NewXIdleTime,
	"xpath":               NewXPathActivity,
}

var wakeupClasses = map[string]WakeupFactory{
	"calendar":     NewCalendarWakeup,
	"command":      NewCommandWakeup,
	"file":         NewFileWakeup,
	"periodic":     NewPeriodicWakeup,
	"systemdtimer": NewSystemdTimer,
	"xpath":        NewXPathWakeup,
	"xpathdelta":   NewXPathDeltaWakeup,
}

// BuildActivities turns the [check.*] tables into probe instances.
// Disabled entries are dropped entirely. At least one enabled activity
// probe is required; a suspend daemon that can never observe activity
// would suspend unconditionally.
func BuildActivities(sections map[string]map[string]any) ([]Activity, error) {
	instances := make([]Activity, 0, len(sections))

	err := eachEnabled(sections, func(name, class string, opts Options) error {
		factory, ok := activityClasses[class]
		if !ok {
			return errFactory.WithMessage(ErrUnknownClass, "unknown activity check class").WithData(class)
		}

		instance, err := factory(name, opts)
		if err != nil {
			return err
		}

		logger.Debug().Str("check", name).Str("class", class).Msg("Configured activity check")
		instances = append(instances, instance)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(instances) == 0 {
		return nil, errFactory.WithMessage(ErrNoActivityChecks, "no activity checks enabled")
	}

	return instances, nil
}

// BuildWakeups turns the [wakeup.*] tables into probe instances. An empty
// result is valid: scheduled wakeups are optional.
func BuildWakeups(sections map[string]map[string]any) ([]Wakeup, error) {
	instances := make([]Wakeup, 0, len(sections))

	err := eachEnabled(sections, func(name, class string, opts Options) error {
		factory, ok := wakeupClasses[class]
		if !ok {
			return errFactory.WithMessage(ErrUnknownClass, "unknown wakeup check class").WithData(class)
		}

		instance, err := factory(name, opts)
		if err != nil {
			return err
		}

		logger.Debug().Str("check", name).Str("class", class).Msg("Configured wakeup check")
		instances = append(instances, instance)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return instances, nil
}

// eachEnabled visits enabled sections in name order, resolving the class
// identifier (defaulting to the section name). Iteration order is the
// probe evaluation order, so it must be deterministic.
func eachEnabled(sections map[string]map[string]any, fn func(name, class string, opts Options) error) error {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opts := Options(sections[name])

		enabled, err := opts.Bool("enabled", false)
		if err != nil {
			return err
		}
		if !enabled {
			logger.Debug().Str("check", name).Msg("Check disabled, skipping")
			continue
		}

		class := strings.ToLower(opts.String("class", name))
		if err := fn(name, class, opts); err != nil {
			return err
		}
	}

	return nil
}
