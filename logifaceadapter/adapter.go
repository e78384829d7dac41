// Package logifaceadapter bridges a goschedkit.Logger onto
// github.com/joeycumines/logiface, backed by zerolog via
// github.com/joeycumines/izerolog — the structured-logging stack
// eventloop's own consumers wire in when they want more than the
// framework-agnostic interface eventloop itself exposes. goschedkit's
// core package never imports this: callers opt in only if they want a
// real backend instead of DefaultLogger/NoOpLogger.
package logifaceadapter

import (
	"github.com/joeycumines/goschedkit"
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger adapts a *logiface.Logger[*izerolog.Event] to goschedkit.Logger.
type Logger struct {
	l *logiface.Logger[*izerolog.Event]
}

// New returns a goschedkit.Logger backed by zerolog, writing wherever z
// writes, filtered at minLevel using goschedkit's level scale.
func New(z zerolog.Logger, minLevel goschedkit.LogLevel) *Logger {
	return &Logger{
		l: logiface.New[*izerolog.Event](
			izerolog.WithZerolog(z),
			logiface.WithLevel[*izerolog.Event](toLogifaceLevel(minLevel)),
		),
	}
}

func toLogifaceLevel(l goschedkit.LogLevel) logiface.Level {
	switch l {
	case goschedkit.LevelDebug:
		return logiface.LevelDebug
	case goschedkit.LevelInfo:
		return logiface.LevelInformational
	case goschedkit.LevelWarn:
		return logiface.LevelWarning
	case goschedkit.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// Log implements goschedkit.Logger.
func (a *Logger) Log(entry goschedkit.LogEntry) {
	b := a.l.Build(toLogifaceLevel(entry.Level))
	if b == nil {
		return
	}
	b = b.Int("tid", int(entry.TID)).Str("category", entry.Category)
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
