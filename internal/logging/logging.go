// Package logging adapts the teacher's colored leveled logger
// (pkg/logger in the SA-MP codebase this engine grew out of) onto
// logrus: the same Debug/Info/Warn/Error/Success call shape, but
// backed by structured fields instead of sprintf'd strings, and scoped
// per-Host/Peer instead of living behind package-level state.
package logging

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger is the leveled logger handed to a Host. The zero value is not
// usable; use New or Default.
type Logger struct {
	entry *logrus.Entry
}

// New wraps an existing logrus.Logger, tagging every line with a fresh
// correlation id the way request ids get threaded through the pack's
// other services.
func New(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.New()
	}
	return &Logger{entry: base.WithField("correlation_id", uuid.NewString())}
}

// Default returns a quiet (warn-level, text-formatted) logger, used
// when a Host is created without an explicit Logger.
func Default() *Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return New(l)
}

// With returns a child logger carrying additional structured fields,
// e.g. log.With("peer", id).Debug("...").
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Debug(msg string, args ...any)   { l.entry.Debugf(msg, args...) }
func (l *Logger) Info(msg string, args ...any)    { l.entry.Infof(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)    { l.entry.Warnf(msg, args...) }
func (l *Logger) Error(msg string, args ...any)   { l.entry.Errorf(msg, args...) }
func (l *Logger) Success(msg string, args ...any) {
	l.entry.WithField("result", "success").Infof(msg, args...)
}
