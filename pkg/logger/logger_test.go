package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New("", "json")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("debug", "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud", "json")
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := NewWithCore(core)

	ctx := NewContext(context.Background(), root.With(StringField("request_id", "abc")))
	root.InfoContext(ctx, "scoped", IntField("n", 1))
	root.WarnContext(context.Background(), "plain")
	root.Error("unscoped")
	root.DebugContext(nil, "nil context")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["n"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

func TestContextLogger_ReportsCallerSite(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	root := wrap(zap.New(core, zap.AddCaller()))

	root.InfoContext(context.Background(), "here")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.True(t, entries[0].Caller.Defined)
	assert.Equal(t, "logger_test.go", filepath.Base(entries[0].Caller.File))
}

func TestDomainFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore(core).Named("scheduler")

	log.Info("run saved", SymbolField("AAPL"), TimeframeField("1d"), RunIDField(42))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "scheduler", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "AAPL", fields["symbol"])
	assert.Equal(t, "1d", fields["timeframe"])
	assert.Equal(t, uint64(42), fields["run_id"])
}
