// Package zapadapter adapts a go.uber.org/zap.Logger to pgwirelog.Logger.
package zapadapter

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coredrift/pgwire/pgwirelog"
)

// Logger wraps a *zap.Logger, tagging every record with module=pgwire.
type Logger struct {
	logger *zap.Logger
}

// NewLogger wraps logger, adding a module=pgwire field to every record.
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.With(zap.String("module", "pgwire"))}
}

func (l *Logger) Log(ctx context.Context, level pgwirelog.LogLevel, msg string, data map[string]any) {
	zlevel := zapLevel(level)
	if ce := l.logger.Check(zlevel, msg); ce != nil {
		fields := make([]zap.Field, 0, len(data))
		for k, v := range data {
			fields = append(fields, zap.Any(k, v))
		}
		ce.Write(fields...)
	}
}

func zapLevel(level pgwirelog.LogLevel) zapcore.Level {
	switch level {
	case pgwirelog.LogLevelTrace, pgwirelog.LogLevelDebug:
		return zapcore.DebugLevel
	case pgwirelog.LogLevelInfo:
		return zapcore.InfoLevel
	case pgwirelog.LogLevelWarn:
		return zapcore.WarnLevel
	case pgwirelog.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}
