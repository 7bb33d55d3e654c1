package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := base
	base = zap.New(core)
	t.Cleanup(func() { base = prev })

	Warn("session lookup failed", map[string]any{
		"error":   errors.New("dial tcp: refused"),
		"user_id": "u1",
	})
	Info("no fields", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "dial tcp: refused", ctx["error"])
	assert.Equal(t, "u1", ctx["user_id"])
	assert.Empty(t, entries[1].Context)
}
