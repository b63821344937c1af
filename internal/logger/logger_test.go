package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "redactor.log")
	log, err := New(Config{
		Level:  "info",
		Format: "json",
		File:   &FileConfig{Enabled: true, Path: path},
	})
	require.NoError(t, err)
	log.Info("hello")
	assert.FileExists(t, path)
}

func TestLogRedactionFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := (&Logger{Logger: zap.New(core)}).WithComponent("server").WithSession("s1")

	log.LogRedaction("text", map[string]int{"PHONE": 2, "EMAIL": 1}, 1.5)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "server", fields["component"])
	assert.Equal(t, "s1", fields["session_id"])
	assert.Equal(t, int64(3), fields["detections"])
	assert.Equal(t, []interface{}{"EMAIL", "PHONE"}, fields["categories"])
}
