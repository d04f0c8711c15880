package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"knowledgehub/internal/config"
)

func TestNewWritesRollingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "hub.log")
	log, err := New(config.Log{Level: "warn", Path: path})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.Uint("post_id", 7))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), `"msg":"kept"`)
	assert.Contains(t, string(raw), `"post_id":7`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, 3, nz(0, 3))
	assert.Equal(t, 5, nz(5, 3))
}
