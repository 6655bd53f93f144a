package check

import (
	"codeberg.org/mutker/suspendctl/internal/errors"
)

const (
	// Probe failure taxonomy
	ErrTemporary = errors.ErrorCode("check_temporary_failure")
	ErrSevere    = errors.ErrorCode("check_severe_failure")

	// Registry and configuration errors
	ErrUnknownClass     = errors.ErrorCode("check_unknown_class")
	ErrInvalidOptions   = errors.ErrorCode("check_invalid_options")
	ErrMissingOption    = errors.ErrorCode("check_missing_option")
	ErrNoActivityChecks = errors.ErrorCode("check_no_activity_checks")
)

var errFactory = errors.New()

// Temporary classifies a probe failure as recoverable: the probe could not
// determine state this iteration. Activity probes failing this way count
// as activity, wakeup probes as having no opinion.
func Temporary(msg string, err error) error {
	if err == nil {
		return errFactory.WithMessage(ErrTemporary, msg)
	}

	return errFactory.Wrap(ErrTemporary, err).WithMessage(msg)
}

// Severe classifies a probe failure as unrecoverable on this host, for
// example a missing binary or broken configuration. Severe failures
// terminate the process.
func Severe(msg string, err error) error {
	if err == nil {
		return errFactory.WithMessage(ErrSevere, msg)
	}

	return errFactory.Wrap(ErrSevere, err).WithMessage(msg)
}

// IsTemporary reports whether err is a recoverable probe failure. Every
// other probe error is fatal to the process.
func IsTemporary(err error) bool {
	return errors.CodeOf(err) == ErrTemporary
}
