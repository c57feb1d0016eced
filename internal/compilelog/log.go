// Package compilelog provides the compiler pipeline's structured logger.
// A nil *Logger is valid and silently discards everything, so passes can
// take a *Logger field without forcing every test and caller to wire one up.
package compilelog

import "github.com/sirupsen/logrus"

// Logger wraps a logrus.Logger scoped to one compilation worker.
type Logger struct {
	l *logrus.Logger
}

// New returns a Logger writing text-formatted entries at the given level.
func New(level logrus.Level) *Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{l: l}
}

func (lg *Logger) entry() *logrus.Entry {
	if lg == nil || lg.l == nil {
		return nil
	}
	return logrus.NewEntry(lg.l)
}

// Debugf logs arena growth, analyzer decisions, and similar per-method
// diagnostics that are too frequent for Info.
func (lg *Logger) Debugf(format string, args ...interface{}) {
	if e := lg.entry(); e != nil {
		e.Debugf(format, args...)
	}
}

// Warnf logs recoverable anomalies such as an assembler re-layout retry.
func (lg *Logger) Warnf(format string, args ...interface{}) {
	if e := lg.entry(); e != nil {
		e.Warnf(format, args...)
	}
}

// Tracef logs the highest-frequency diagnostics (dedupe hit/miss).
func (lg *Logger) Tracef(format string, args ...interface{}) {
	if e := lg.entry(); e != nil {
		e.Tracef(format, args...)
	}
}

// WithField returns a derived Logger-like entry for structured fields. It
// returns the underlying *logrus.Entry directly since compilelog does not
// need to nest further wrapping for this single use (method name tagging).
func (lg *Logger) WithField(key string, value interface{}) *logrus.Entry {
	e := lg.entry()
	if e == nil {
		return logrus.NewEntry(logrus.New())
	}
	return e.WithField(key, value)
}
