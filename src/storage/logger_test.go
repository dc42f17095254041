package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BikeSharing/src/config"
)

func TestLoggerWritesAndMirrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	var buf bytes.Buffer
	logger.Mirror(&buf)
	logger.Warning("Logo tidak ditemukan")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WARNING: Logo tidak ditemukan")
	assert.Equal(t, string(data), buf.String())
}

func TestLoggerSubscribe(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Info("报表已生成")

	entry := <-ch
	assert.True(t, strings.HasSuffix(entry, "INFO: 报表已生成\n"), entry)

	logger.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	cfg := &config.Config{LogMaxSize: "1 * 10"}
	for i := 0; i < 3; i++ {
		logger.Debug("This is a log message")
	}
	require.NoError(t, logger.CheckRotate(cfg))

	matches, err := filepath.Glob(filepath.Join(dir, "app.*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(0), eval(""))
	assert.Equal(t, int64(0), eval("ten"))
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
