// Package zerologadapter adapts a github.com/rs/zerolog.Logger to
// pgwirelog.Logger.
package zerologadapter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/coredrift/pgwire/pgwirelog"
)

// Logger wraps a zerolog.Logger, tagging every record with module=pgwire
// unless disabled.
type Logger struct {
	logger zerolog.Logger
}

type options struct {
	withoutModuleField bool
}

type Option func(*options)

// WithoutModuleField disables the added "module":"pgwire" field.
func WithoutModuleField() Option {
	return func(o *options) { o.withoutModuleField = true }
}

// NewLogger wraps logger, adding a module=pgwire field to every record
// unless WithoutModuleField is passed.
func NewLogger(logger zerolog.Logger, opts ...Option) *Logger {
	var o options
	for _, apply := range opts {
		apply(&o)
	}
	if !o.withoutModuleField {
		logger = logger.With().Str("module", "pgwire").Logger()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Log(ctx context.Context, level pgwirelog.LogLevel, msg string, data map[string]any) {
	var zlevel zerolog.Level
	switch level {
	case pgwirelog.LogLevelNone:
		zlevel = zerolog.NoLevel
	case pgwirelog.LogLevelError:
		zlevel = zerolog.ErrorLevel
	case pgwirelog.LogLevelWarn:
		zlevel = zerolog.WarnLevel
	case pgwirelog.LogLevelInfo:
		zlevel = zerolog.InfoLevel
	case pgwirelog.LogLevelTrace:
		zlevel = zerolog.TraceLevel
	default:
		zlevel = zerolog.DebugLevel
	}

	event := l.logger.With().Fields(data).Logger()
	event.WithLevel(zlevel).Msg(msg)
}
