package logger

import (
	"context"
	"os"
	"testing"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleEncoding(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, consoleEncoding("console", f.Fd()))
	assert.False(t, consoleEncoding("json", f.Fd()))
	// A regular file is never a terminal.
	assert.False(t, consoleEncoding("", f.Fd()))
}

func TestLevelFallsBackToDebug(t *testing.T) {
	l := NewApiLogger(&config.Config{Logger: config.Logger{Level: "loud"}})
	assert.Equal(t, "debug", l.getLoggerLevel(l.cfg).String())
}

func TestFromContext(t *testing.T) {
	fallback := NewNop()
	assert.Equal(t, fallback, FromContext(context.Background(), fallback))

	scoped := fallback.With("request_id", "abc")
	assert.Equal(t, scoped, FromContext(WithContext(context.Background(), scoped), fallback))
}
