package graphflow

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerHonorsLevel(t *testing.T) {
	logger := NewLogger(slog.LevelWarn)
	require.NotNil(t, logger)
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewJSONLoggerHonorsLevel(t *testing.T) {
	logger := NewJSONLogger(slog.LevelDebug)
	require.NotNil(t, logger)
	require.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
