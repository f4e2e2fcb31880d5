package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// SinkFunc receives every message that passes through the logger, regardless
// of the zerolog level filter. The CLI uses it to collect an audit trail.
type SinkFunc func(msg string, level zerolog.Level)

func AddSinkToLoggerInstance(loggerInstance *Logger, sinkFunction SinkFunc) {
	loggerInstance.sink = sinkFunction
}

func (l *Logger) activateSinkFormatted(level zerolog.Level, format string, v ...interface{}) {
	if l.sink == nil {
		return
	}
	l.activateSink(fmt.Sprintf(format, v...), level)
}

func (l *Logger) activateSink(msg string, level zerolog.Level) {
	if l.sink != nil {
		l.sink(msg, level)
	}
}
