package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUsesXDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/annotate", cfg.DataDir)
	assert.Equal(t, "/tmp/xdg/annotate/annotate.db", cfg.DBPath)
	assert.Equal(t, "/tmp/xdg/annotate/records", cfg.RecordsDir)
	assert.Equal(t, 10, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, 7, cfg.Stats.WindowDays)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotate.yaml")
	yamlConfig := `
dataDir: /srv/annotate
log:
  level: debug
  format: json
http:
  addr: ":9090"
  shutdownTimeout: 3s
invites:
  operatorCode: op-secret
  workerCode: worker-secret
leaderboard:
  defaultLimit: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))
	t.Setenv("ANNOTATE_HTTP_ADDR", ":7070")
	t.Setenv("ANNOTATE_STATS_TIME_ZONE", "UTC")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/annotate", cfg.DataDir)
	assert.Equal(t, "/srv/annotate/annotate.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "op-secret", cfg.Invites.OperatorCode)
	assert.Equal(t, 25, cfg.Leaderboard.DefaultLimit)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }},
		{"zero leaderboard limit", func(c *Config) { c.Leaderboard.DefaultLimit = 0 }},
		{"zero window", func(c *Config) { c.Stats.WindowDays = 0 }},
		{"unknown zone", func(c *Config) { c.Stats.TimeZone = "Mars/Olympus_Mons" }},
		{"shared invite code", func(c *Config) {
			c.Invites.OperatorCode = "same"
			c.Invites.WorkerCode = "same"
		}},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
