// Package pgwirelog defines the logging interface pgwire.Session and
// pool.Pool report observability events through, plus adapters onto two
// popular structured loggers.
package pgwirelog

import "context"

// LogLevel is the severity of a single log event.
type LogLevel int

// The zero value means "no level specified", matching a nil Logger's
// effective behavior of dropping everything.
const (
	LogLevelTrace = LogLevel(6)
	LogLevelDebug = LogLevel(5)
	LogLevelInfo  = LogLevel(4)
	LogLevelWarn  = LogLevel(3)
	LogLevelError = LogLevel(2)
	LogLevelNone  = LogLevel(1)
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "trace"
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelNone:
		return "none"
	default:
		return "unknown"
	}
}

// Logger receives every observability event a Session or Pool emits:
// frame_sent, frame_received, error_response, notice, ready_for_query,
// pool_lease, pool_return, pool_open, pool_close, and others named in
// individual event's msg. data carries event-specific fields and may be
// nil.
type Logger interface {
	Log(ctx context.Context, level LogLevel, msg string, data map[string]any)
}

// LoggerFunc adapts a plain function to the Logger interface.
type LoggerFunc func(ctx context.Context, level LogLevel, msg string, data map[string]any)

func (f LoggerFunc) Log(ctx context.Context, level LogLevel, msg string, data map[string]any) {
	f(ctx, level, msg, data)
}
