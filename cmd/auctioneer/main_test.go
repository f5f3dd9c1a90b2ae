package main

import (
	"context"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestVerbosityControlsHandlerLevel(t *testing.T) {
	h := newLogHandler(io.Discard, 3, false)
	require.True(t, h.Enabled(context.Background(), log.LevelInfo))
	require.False(t, h.Enabled(context.Background(), log.LevelDebug))

	h = newLogHandler(io.Discard, 5, false)
	require.True(t, h.Enabled(context.Background(), log.LevelTrace))

	h = newLogHandler(io.Discard, 1, false)
	require.False(t, h.Enabled(context.Background(), log.LevelWarn))
	require.True(t, h.Enabled(context.Background(), log.LevelError))
}

func TestLoggerInstallDoesNotPanic(t *testing.T) {
	log.SetDefault(log.NewLogger(newLogHandler(io.Discard, 3, false)))
	log.Info("started", "listenAddr", ":0")
}
