package logger

import "codeberg.org/mutker/suspendctl/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	FatalWithCode(err errors.Error) *LogEvent
}

type stdLogger struct{}

// Default returns a Logger backed by the package-level logger.
func Default() Logger {
	return stdLogger{}
}

func (stdLogger) Debug() *LogEvent { return Debug() }
func (stdLogger) Info() *LogEvent { return Info() }
func (stdLogger) Warn() *LogEvent { return Warn() }
func (stdLogger) Error() *LogEvent { return Error() }

func (stdLogger) ErrorWithCode(err errors.Error) *LogEvent { return ErrorWithCode(err) }
func (stdLogger) FatalWithCode(err errors.Error) *LogEvent { return FatalWithCode(err) }
