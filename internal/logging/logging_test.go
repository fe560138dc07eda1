package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/annotate/internal/config"
)

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	log.Info("hidden")
	log.WithField("task_id", "t1").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "task_id=t1")
}

func TestNewJSONWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "annotate.log")
	var buf bytes.Buffer
	log, closer, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	log.WithField("worker_id", "w1").Info("saved")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"worker_id":"w1"`)
	assert.Contains(t, buf.String(), `"msg":"saved"`)
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"}, nil)
	assert.Error(t, err)
}
