package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/framesift/pkg/ports"
)

// ZapLogger emits structured JSON records. Messages are formatted without
// translation so log pipelines see stable text.
type ZapLogger struct {
	z *zap.SugaredLogger
}

// NewZap builds a production JSON logger at the given level.
func NewZap(level ports.LogLevel) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{z: z.Sugar()}, nil
}

// NewZapFrom wraps an existing zap logger.
func NewZapFrom(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z.Sugar()}
}

func zapLevel(level ports.LogLevel) zapcore.Level {
	switch level {
	case ports.LevelDebug:
		return zapcore.DebugLevel
	case ports.LevelWarn:
		return zapcore.WarnLevel
	case ports.LevelError:
		return zapcore.ErrorLevel
	case ports.LevelQuiet:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.z.Debugf(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.z.Infof(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.z.Warnf(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.z.Errorf(msg, args...) }

// WithComponent adds a "component" field.
func (l *ZapLogger) WithComponent(component string) ports.Logger {
	return &ZapLogger{z: l.z.With("component", component)}
}

// Sync flushes buffered records.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

var _ ports.Logger = (*ZapLogger)(nil)
