package log

import (
	"bytes"
	stdlog "log"
)

// stdlogWriter adapts a Logger to io.Writer for the standard library logger.
type stdlogWriter struct {
	logger Logger
	level  Level
}

func (w stdlogWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\n"))
	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}

// RedirectStdLog routes standard library log output (used by Pebble) through
// the provided logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{logger: logger, level: InfoLevel})
}

// ToStdLogger returns a *log.Logger that writes through the provided logger
// at the given level, for libraries that require the standard interface.
func ToStdLogger(logger Logger, level Level) *stdlog.Logger {
	return stdlog.New(stdlogWriter{logger: logger, level: level}, "", 0)
}
