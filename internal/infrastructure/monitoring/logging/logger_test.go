package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T) (Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: LevelDebug, Format: format, OutputPaths: []string{"stderr"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_EmptyOutputPaths(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	t.Parallel()

	l, logs := newObservedLogger(t)
	l.With(Component("basiscache")).Warn("blob corrupted",
		String("key", "DPI4L0.basis"),
		Int("dpi", 4),
		Float64("ratio", 0.5),
		Bool("recompute", true),
		Duration("elapsed", time.Second),
		Err(errors.New("checksum mismatch")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "basiscache", ctx["component"])
	assert.Equal(t, "DPI4L0.basis", ctx["key"])
	assert.Equal(t, int64(4), ctx["dpi"])
	assert.Equal(t, true, ctx["recompute"])
	assert.Equal(t, "checksum mismatch", ctx["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	t.Parallel()

	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.NoError(t, l.With(String("a", "b")).Named("x").Sync())
}

func TestErr_Nil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<nil>", Err(nil).Value)
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	before := Default()
	SetDefault(nil)
	assert.Equal(t, before, Default())
}
