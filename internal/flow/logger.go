package flow

import "log/slog"

// Logger receives progress messages at traversal and rendering checkpoints.
type Logger interface {
	Log(msg string)
}

// LoggerFunc adapts a plain function to Logger.
type LoggerFunc func(msg string)

func (f LoggerFunc) Log(msg string) { f(msg) }

type nopLogger struct{}

func (nopLogger) Log(string) {}

// OrNop returns l, or a logger that drops everything when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// SlogLogger forwards core checkpoints to a structured logger at debug level.
func SlogLogger(l *slog.Logger, attrs ...any) Logger {
	if l == nil {
		return nopLogger{}
	}
	l = l.With(attrs...)
	return LoggerFunc(func(msg string) {
		l.Debug(msg)
	})
}
