// Package obslog adapts the storage core's two observability hooks — a
// logger callback and a panic handler (spec §6) — onto a real structured
// logger, so Cache, Bucket and InputLog stay decoupled from any specific
// logging library. Their hooks are nil unless the caller passes some;
// FromZap builds a set backed by a *zap.Logger.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFunc receives a caller-defined tag and a message for a non-fatal
// diagnostic event.
type LogFunc func(tag int32, msg string)

// PanicFunc receives a message for a fatal diagnostic event, immediately
// before the caller unwinds or aborts the operation that triggered it.
type PanicFunc func(msg string)

// Hooks bundles the two callbacks spec §6 defines. Either field may be nil;
// Notify and Fatal are safe to call on a nil *Hooks or with nil fields.
type Hooks struct {
	OnLog   LogFunc
	OnPanic PanicFunc
}

// Notify invokes the logger callback if one is set.
func (h *Hooks) Notify(tag int32, msg string) {
	if h == nil || h.OnLog == nil {
		return
	}
	h.OnLog(tag, msg)
}

// Fatal invokes the panic handler if one is set.
func (h *Hooks) Fatal(msg string) {
	if h == nil || h.OnPanic == nil {
		return
	}
	h.OnPanic(msg)
}

// Tag values passed to LogFunc by the core components.
const (
	TagInfo  int32 = 0
	TagWarn  int32 = 1
	TagError int32 = 2
)

// FromZap builds Hooks backed by a real *zap.Logger: OnLog maps the tag to a
// zap level and logs the message, OnPanic logs at error level before the
// caller unwinds.
func FromZap(logger *zap.Logger) *Hooks {
	return &Hooks{
		OnLog: func(tag int32, msg string) {
			lvl := zapLevel(tag)
			if ce := logger.Check(lvl, msg); ce != nil {
				ce.Write(zap.Int32("tag", tag))
			}
		},
		OnPanic: func(msg string) {
			logger.Error("panic", zap.String("msg", msg))
		},
	}
}

func zapLevel(tag int32) zapcore.Level {
	switch tag {
	case TagWarn:
		return zapcore.WarnLevel
	case TagError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
