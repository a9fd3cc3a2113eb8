package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"raisefunds/config"
)

func TestFileLogger(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "raisefunds.log")

	config.GlobalConfigCallback.Call(config.Config{
		Logger: config.LoggerConfig{Level: "INFO", File: fileName, MaxFileSize: 1},
	})
	t.Cleanup(func() { sugar = createSugaredLogger(DefaultLoggerConfig()) })

	Debug("hidden %d", 1)
	Info("donation %d confirmed", 42)
	Request("req-1", "POST", "/api/donations/42/confirm", 200, 3)
	SyncFileLogger()

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)

	assert.Contains(t, string(content), "donation 42 confirmed")
	assert.Contains(t, string(content), "/api/donations/42/confirm")
	assert.NotContains(t, string(content), "hidden 1")
}

func TestColorWrap(t *testing.T) {
	assert.Equal(t, "\x1b[31mERROR\x1b[0m", levelToCapitalColorString[zapcore.ErrorLevel])
}
