package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		" WARN": zapcore.WarnLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)

	_, ok = ParseLogLevel("fatal")
	require.False(t, ok)
}

// TestParseFormat covers known, empty and unknown formats.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, ok := ParseFormat("JSON")
	require.True(t, ok)
	require.Equal(t, FormatJSON, f)

	f, ok = ParseFormat("")
	require.True(t, ok)
	require.Equal(t, FormatConsole, f)

	_, ok = ParseFormat("xml")
	require.False(t, ok)

	require.NotNil(t, New(zapcore.DebugLevel, FormatJSON))
}

// TestContextHelpers verifies scoped names and fields travel with the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)

	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "lockd")
	ctx = WithKV(ctx, "command", "unlock")

	InfoKV(ctx, "Command handled", "result", "unlock_success")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "lockd", entries[0].LoggerName)
	require.Equal(t, "unlock", entries[0].ContextMap()["command"])
	require.Equal(t, "unlock_success", entries[0].ContextMap()["result"])

	// Without a logger in the context the global one is used.
	require.Same(t, Logger(), FromContext(context.Background()))
}
