package check

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Options holds one probe's configuration table. Keys are lowercase; the
// config loader hands tables over exactly as read from the [check.*] and
// [wakeup.*] sections.
type Options map[string]any

func (o Options) value(key string) (any, bool) {
	v, ok := o[strings.ToLower(key)]
	return v, ok
}

// Has reports whether the option is present.
func (o Options) Has(key string) bool {
	_, ok := o.value(key)
	return ok
}

// String returns the option value or fallback when absent.
func (o Options) String(key, fallback string) string {
	v, ok := o.value(key)
	if !ok {
		return fallback
	}

	return cast.ToString(v)
}

// RequiredString returns the option value or a severe configuration error
// when absent or empty.
func (o Options) RequiredString(key string) (string, error) {
	s := strings.TrimSpace(o.String(key, ""))
	if s == "" {
		return "", errFactory.WithMessage(ErrMissingOption, "required option missing").WithData(key)
	}

	return s, nil
}

// Int returns the option as an int or fallback when absent.
func (o Options) Int(key string, fallback int) (int, error) {
	v, ok := o.value(key)
	if !ok {
		return fallback, nil
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, errFactory.Wrap(ErrInvalidOptions, err).WithData(key)
	}

	return n, nil
}

// Float returns the option as a float64 or fallback when absent.
func (o Options) Float(key string, fallback float64) (float64, error) {
	v, ok := o.value(key)
	if !ok {
		return fallback, nil
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, errFactory.Wrap(ErrInvalidOptions, err).WithData(key)
	}

	return f, nil
}

// Bool returns the option as a bool or fallback when absent.
func (o Options) Bool(key string, fallback bool) (bool, error) {
	v, ok := o.value(key)
	if !ok {
		return fallback, nil
	}

	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, errFactory.Wrap(ErrInvalidOptions, err).WithData(key)
	}

	return b, nil
}

// Seconds returns a numeric option interpreted as seconds.
func (o Options) Seconds(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := o.value(key)
	if !ok {
		return fallback, nil
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, errFactory.Wrap(ErrInvalidOptions, err).WithData(key)
	}

	return time.Duration(f * float64(time.Second)), nil
}

// StringSlice returns the option as a list. Accepts native arrays as well
// as comma-separated strings.
func (o Options) StringSlice(key string) []string {
	v, ok := o.value(key)
	if !ok {
		return nil
	}

	var parts []string
	switch s := v.(type) {
	case string:
		parts = strings.Split(s, ",")
	default:
		parts = cast.ToStringSlice(v)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
