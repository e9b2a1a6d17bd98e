package logger

import corelogger "github.com/kilianp07/resident-scheduler/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// Config selects the level and the output format of the process logger.
type Config struct {
	Level string `json:"level" yaml:"level"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format" yaml:"format"`
}

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
