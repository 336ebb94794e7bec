package logger

// Logger is the structured logging contract used throughout the worker.
// Implementations must be safe for concurrent use.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	// WithFields returns a child logger with the given structured fields
	// attached to every subsequent entry.
	WithFields(fields map[string]interface{}) Logger
}

// Config controls encoder/level behavior.
type Config struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}
