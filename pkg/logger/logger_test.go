package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNew(t *testing.T) {
	l, err := New("error")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))

	c, err := NewConsole("debug")
	require.NoError(t, err)
	assert.True(t, c.Core().Enabled(zapcore.DebugLevel))
}

func TestGetInitializesOnce(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	first := Get()
	second := Get()

	require.NotNil(t, first)
	assert.Same(t, first, second)
}
