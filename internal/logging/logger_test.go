package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zap.AtomicLevel
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"INFO", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"error", zap.NewAtomicLevelAt(zap.ErrorLevel)},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want.Level(), got, tt.in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "wbctx.log")

	logger, err := New(config.LoggingConfig{Level: "info", File: logFile}, false)
	require.NoError(t, err)

	logger.Info("refresh complete", zap.Int("items", 2))
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "refresh complete")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "wbctx.log")

	logger, err := New(config.LoggingConfig{Level: "error", File: logFile}, true)
	require.NoError(t, err)

	logger.Debug("visible")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"}, false)
	assert.Error(t, err)
}
