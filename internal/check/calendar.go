package check

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/apognu/gocal"

	"codeberg.org/mutker/suspendctl/internal/logger"
)

const (
	// activity window; an event counts as active when it overlaps it
	activeEventWindow = time.Minute

	// how far into the future the wakeup variant looks for events
	calendarLookahead = 24 * 7 * 24 * time.Hour
)

// parseCalendarEvents lists the events of an iCalendar document that
// overlap the given window, expanded recurrences included, sorted by
// start time.
func parseCalendarEvents(data []byte, start, end time.Time) ([]gocal.Event, error) {
	parser := gocal.NewParser(bytes.NewReader(data))
	parser.Start, parser.End = &start, &end

	if err := parser.Parse(); err != nil {
		return nil, Temporary("unable to parse calendar data", err)
	}

	events := parser.Events
	sort.Slice(events, func(i, j int) bool {
		return events[i].Start.Before(*events[j].Start)
	})

	return events, nil
}

// ActiveCalendarEvent reports activity while an event in a fetched
// iCalendar file is currently running.
type ActiveCalendarEvent struct {
	name    string
	fetcher *fetcher
}

func NewActiveCalendarEvent(name string, opts Options) (Activity, error) {
	f, err := newFetcher(opts)
	if err != nil {
		return nil, err
	}

	return &ActiveCalendarEvent{name: name, fetcher: f}, nil
}

func (c *ActiveCalendarEvent) Name() string { return c.name }

func (c *ActiveCalendarEvent) Check(ctx context.Context) (string, error) {
	data, err := c.fetcher.fetch(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now().UTC()
	events, err := parseCalendarEvents(data, start, start.Add(activeEventWindow))
	if err != nil {
		return "", err
	}

	logger.Debug().Str("check", c.name).Int("events", len(events)).Msg("Listed active calendar events")

	if len(events) > 0 {
		return "calendar event " + events[0].Summary + " is active", nil
	}

	return "", nil
}

// CalendarWakeup wakes the system for the next upcoming event in a
// fetched iCalendar file.
type CalendarWakeup struct {
	name    string
	fetcher *fetcher
}

func NewCalendarWakeup(name string, opts Options) (Wakeup, error) {
	f, err := newFetcher(opts)
	if err != nil {
		return nil, err
	}

	return &CalendarWakeup{name: name, fetcher: f}, nil
}

func (c *CalendarWakeup) Name() string { return c.name }

func (c *CalendarWakeup) NextWakeup(ctx context.Context, now time.Time) (time.Time, error) {
	data, err := c.fetcher.fetch(ctx)
	if err != nil {
		return time.Time{}, err
	}

	events, err := parseCalendarEvents(data, now, now.Add(calendarLookahead))
	if err != nil {
		return time.Time{}, err
	}

	// currently running events are not our business
	for i := range events {
		if events[i].Start != nil && !events[i].Start.Before(now) {
			return events[i].Start.UTC(), nil
		}
	}

	return time.Time{}, nil
}
