// Package config loads annotate's settings from defaults, an optional YAML
// file and ANNOTATE_* environment variables, in that order.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "ANNOTATE_"

// Config is the full application configuration
type Config struct {
	// DataDir holds the database and the records directory unless they are set explicitly.
	DataDir    string `yaml:"dataDir" env:"DATA_DIR"`
	DBPath     string `yaml:"dbPath" env:"DB_PATH"`
	RecordsDir string `yaml:"recordsDir" env:"RECORDS_DIR"`

	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
	HTTP        HTTPConfig        `yaml:"http" envPrefix:"HTTP_"`
	Invites     InviteConfig      `yaml:"invites" envPrefix:"INVITE_"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard" envPrefix:"LEADERBOARD_"`
	Stats       StatsConfig       `yaml:"stats" envPrefix:"STATS_"`
}

// LogConfig controls logrus output and file rotation
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // text or json
	// File enables rotated file output in addition to stderr when set.
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"maxSizeMb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"maxBackups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"maxAgeDays" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// HTTPConfig configures the JSON API server
type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
}

// InviteConfig holds the registration secrets. The code a user registers
// with decides their role.
type InviteConfig struct {
	OperatorCode string `yaml:"operatorCode" env:"OPERATOR_CODE"`
	WorkerCode   string `yaml:"workerCode" env:"WORKER_CODE"`
}

// LeaderboardConfig configures leaderboard queries
type LeaderboardConfig struct {
	DefaultLimit int `yaml:"defaultLimit" env:"DEFAULT_LIMIT"`
}

// StatsConfig configures per-worker activity stats
type StatsConfig struct {
	// TimeZone is an IANA name; empty or "Local" uses the host zone.
	TimeZone   string `yaml:"timeZone" env:"TIME_ZONE"`
	WindowDays int    `yaml:"windowDays" env:"WINDOW_DAYS"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Leaderboard: LeaderboardConfig{DefaultLimit: 10},
		Stats:       StatsConfig{WindowDays: 7},
	}
}

// Load builds the configuration. An empty path skips the YAML file; a path
// that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) resolvePaths() {
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "annotate.db")
	}
	if cfg.RecordsDir == "" {
		cfg.RecordsDir = filepath.Join(cfg.DataDir, "records")
	}
}

// Validate checks the configuration for values the application cannot run with
func (cfg *Config) Validate() error {
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("log format must be text or json, got %q", cfg.Log.Format)
	}
	if cfg.HTTP.Addr == "" {
		return errors.New("http addr must not be empty")
	}
	if cfg.Leaderboard.DefaultLimit <= 0 {
		return errors.Errorf("leaderboard default limit must be > 0, got %d", cfg.Leaderboard.DefaultLimit)
	}
	if cfg.Stats.WindowDays <= 0 {
		return errors.Errorf("stats window must be > 0 days, got %d", cfg.Stats.WindowDays)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if cfg.Invites.OperatorCode != "" && cfg.Invites.OperatorCode == cfg.Invites.WorkerCode {
		return errors.New("operator and worker invite codes must differ")
	}
	return nil
}

// Location returns the time zone worker stats are bucketed in
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Stats.TimeZone == "" || cfg.Stats.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.Stats.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "stats time zone %q", cfg.Stats.TimeZone)
	}
	return loc, nil
}

// defaultDataDir uses the XDG data directory or falls back to ~/.local/share
func defaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "annotate-data"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "annotate")
}
