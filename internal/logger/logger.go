package logger

import (
	"os"

	"go.uber.org/zap"
)

var base = zap.NewNop()

// Init installs the production JSON logger. Safe to call more than once.
func Init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewExample()
	}
	base = l
	base.Info("logger initialized")
}

// L exposes the underlying zap logger for components that take one.
func L() *zap.Logger {
	return base
}

func Sync() {
	_ = base.Sync()
}

func Info(msg string, fields map[string]any) {
	base.Info(msg, toZap(fields)...)
}

func Warn(msg string, fields map[string]any) {
	base.Warn(msg, toZap(fields)...)
}

func Error(msg string, fields map[string]any) {
	base.Error(msg, toZap(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	base.Error(msg, toZap(fields)...)
	Sync()
	os.Exit(1)
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
