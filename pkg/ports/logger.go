// Package ports defines the interfaces between the extraction core and its
// adapters: decoders, packet readers, logging and file output.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-run and per-seek details.
	LevelDebug LogLevel = iota
	// LevelInfo is for call-level progress such as plan sizes.
	LevelInfo
	// LevelWarn is for recoverable problems, for example an unsupported
	// auxiliary stream or a panicking progress callback.
	LevelWarn
	// LevelError is for failures that abort a call.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet", "silent":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger abstracts logging. Messages are lexicon keys in fmt syntax so
// adapters can translate them before formatting.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that tags messages with a component
	// name such as "engine" or "coordinator".
	WithComponent(component string) Logger
}
