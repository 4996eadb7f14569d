package logger

import corelogger "github.com/acasal/alertd/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// New returns a Logger for the given component at the given minimum level.
// The output format is detected via the APP_ENV variable.
func New(component, level string) Logger {
	return NewZerologLogger(component, level)
}
