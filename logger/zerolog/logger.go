// Package zerolog bridges the module's logging surface to a zerolog.Logger.
package zerolog

import (
	"github.com/avelinop/txoutbox/txo"
	"github.com/rs/zerolog"
)

// Logger forwards each log call to the wrapped zerolog.Logger at the
// matching level.
type Logger struct {
	Logger zerolog.Logger
}

var _ txo.Logger = (*Logger)(nil)

func (l *Logger) Debug(msg string) {
	l.Logger.Debug().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	l.Logger.Warn().Msg(msg)
}

func (l *Logger) Error(msg string, err error) {
	l.Logger.Err(err).Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.Logger.Info().Msg(msg)
}
