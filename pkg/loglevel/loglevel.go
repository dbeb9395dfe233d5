// Package loglevel wraps a logs.Log so that messages below a configured
// minimum level are discarded.
package loglevel

import (
	"fmt"

	"github.com/cyclopcam/logs"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts the log_level config values.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level '%v'", s)
}

// FilterLogger writes to the underlying log, but discards messages below Min.
// Criticalf always passes through.
type FilterLogger struct {
	Log logs.Log
	Min Level
}

func NewFilterLogger(log logs.Log, min Level) *FilterLogger {
	return &FilterLogger{
		Log: log,
		Min: min,
	}
}

func (l *FilterLogger) Close() {
	l.Log.Close()
}

func (l *FilterLogger) Debugf(format string, a ...interface{}) {
	if l.Min <= LevelDebug {
		l.Log.Debugf(format, a...)
	}
}

func (l *FilterLogger) Infof(format string, a ...interface{}) {
	if l.Min <= LevelInfo {
		l.Log.Infof(format, a...)
	}
}

func (l *FilterLogger) Warnf(format string, a ...interface{}) {
	if l.Min <= LevelWarn {
		l.Log.Warnf(format, a...)
	}
}

func (l *FilterLogger) Errorf(format string, a ...interface{}) {
	if l.Min <= LevelError {
		l.Log.Errorf(format, a...)
	}
}

func (l *FilterLogger) Criticalf(format string, a ...interface{}) {
	l.Log.Criticalf(format, a...)
}
