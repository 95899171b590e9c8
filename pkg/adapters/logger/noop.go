package logger

import "github.com/user/framesift/pkg/ports"

// NoopLogger discards all messages. Library callers get it when they pass no
// logger.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...interface{}) {}
func (l *NoopLogger) Info(msg string, args ...interface{})  {}
func (l *NoopLogger) Warn(msg string, args ...interface{})  {}
func (l *NoopLogger) Error(msg string, args ...interface{}) {}

// WithComponent returns the same no-op logger.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}

// OrNoop returns l, or a NoopLogger when l is nil.
func OrNoop(l ports.Logger) ports.Logger {
	if l == nil {
		return NewNoop()
	}
	return l
}
