package aitl

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

var _ retryablehttp.LeveledLogger = leveledLogger{}

// leveledLogger routes retryablehttp's logging through zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Error(), msg, keysAndValues)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Debug(), msg, keysAndValues)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Debug(), msg, keysAndValues)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Warn(), msg, keysAndValues)
}

func (l leveledLogger) event(e *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		e = e.Interface(key, keysAndValues[i+1])
	}
	e.Msg(msg)
}
