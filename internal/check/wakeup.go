package check

import (
	"context"
	"os"
	"strings"
	"time"
)

// FileWakeup reads the next wake time from a file on disk. The first
// line is interpreted as UTC epoch seconds. A missing file means no
// scheduled wake.
type FileWakeup struct {
	name string
	path string
}

func NewFileWakeup(name string, opts Options) (Wakeup, error) {
	path, err := opts.RequiredString("path")
	if err != nil {
		return nil, err
	}

	return &FileWakeup{name: name, path: path}, nil
}

func (c *FileWakeup) Name() string { return c.name }

func (c *FileWakeup) NextWakeup(_ context.Context, _ time.Time) (time.Time, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}

		return time.Time{}, Temporary("next wakeup time cannot be read despite a file being present", err)
	}

	firstLine, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	if firstLine == "" {
		return time.Time{}, Temporary("wakeup file is empty", nil)
	}

	return parseEpoch(firstLine)
}

// PeriodicWakeup always requests a wake a fixed delta after now. Use it
// to wake a system periodically.
type PeriodicWakeup struct {
	name  string
	delta time.Duration
}

func NewPeriodicWakeup(name string, opts Options) (Wakeup, error) {
	unitName := strings.ToLower(opts.String("unit", "seconds"))
	unit, ok := deltaUnits[unitName]
	if !ok {
		return nil, errFactory.WithMessage(ErrInvalidOptions, "unsupported unit").WithData(unitName)
	}

	value, err := opts.Float("value", 0)
	if err != nil {
		return nil, err
	}
	if value <= 0 {
		return nil, errFactory.WithMessage(ErrMissingOption, "a positive value is required").WithData("value")
	}

	return &PeriodicWakeup{name: name, delta: time.Duration(value * float64(unit))}, nil
}

func (c *PeriodicWakeup) Name() string { return c.name }

func (c *PeriodicWakeup) NextWakeup(_ context.Context, now time.Time) (time.Time, error) {
	return now.Add(c.delta), nil
}
