package logging

import (
	"os"
	"path/filepath"
	"testing"

	"stockdesk/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockdesk.log")

	logger := New(config.LogConfig{
		Level:       "warn",
		Format:      "json",
		OutputPaths: []string{path},
	})
	logger.Info("dropped")
	logger.Warn("kept", zap.String("thread", "t-1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"thread":"t-1"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_BadOutputFallsBack(t *testing.T) {
	logger := New(config.LogConfig{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"/nonexistent/dir/stockdesk.log"},
	})
	assert.NotNil(t, logger)
}
