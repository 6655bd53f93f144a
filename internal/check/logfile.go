package check

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const defaultLogActivityDelta = 10 * time.Minute

// LastLogActivity reports activity while the newest timestamp extracted
// from a log file is younger than the configured delta. The pattern must
// contain exactly one capture group holding the timestamp.
type LastLogActivity struct {
	name     string
	logFile  string
	pattern  *regexp.Regexp
	delta    time.Duration
	location *time.Location
}

func NewLastLogActivity(name string, opts Options) (Activity, error) {
	logFile, err := opts.RequiredString("log_file")
	if err != nil {
		return nil, err
	}

	rawPattern, err := opts.RequiredString("pattern")
	if err != nil {
		return nil, err
	}
	pattern, err := regexp.Compile(rawPattern)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err).WithData("pattern")
	}
	if pattern.NumSubexp() != 1 {
		return nil, errFactory.WithMessage(ErrInvalidOptions, "pattern must have exactly one capture group").WithData(rawPattern)
	}

	minutes, err := opts.Int("minutes", int(defaultLogActivityDelta/time.Minute))
	if err != nil {
		return nil, err
	}
	if minutes < 0 {
		return nil, errFactory.WithMessage(ErrInvalidOptions, "minutes must not be negative").WithData(minutes)
	}

	location, err := time.LoadLocation(opts.String("timezone", "UTC"))
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err).WithData("timezone")
	}

	return &LastLogActivity{
		name:     name,
		logFile:  logFile,
		pattern:  pattern,
		delta:    time.Duration(minutes) * time.Minute,
		location: location,
	}, nil
}

func (c *LastLogActivity) Name() string { return c.name }

func (c *LastLogActivity) Check(_ context.Context) (string, error) {
	data, err := os.ReadFile(c.logFile)
	if err != nil {
		return "", Temporary("cannot access log file "+c.logFile, err)
	}

	now := time.Now()

	// only the newest matching line counts
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		match := c.pattern.FindStringSubmatch(lines[i])
		if match == nil {
			continue
		}

		stamp, err := dateparse.ParseIn(match[1], c.location)
		if err != nil {
			return "", Temporary(fmt.Sprintf("detected date %q cannot be parsed as a date", match[1]), err)
		}
		if stamp.After(now) {
			return "", Temporary(fmt.Sprintf("detected date %s is in the future", stamp), nil)
		}

		if now.Sub(stamp) < c.delta {
			return fmt.Sprintf("log activity in %s at %s", c.logFile, stamp), nil
		}

		return "", nil
	}

	return "", nil
}
