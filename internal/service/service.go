// Package service is the single entry point the CLI, HTTP API and terminal UI
// use to reach tasks, the annotation ledger, progress and stats.
package service

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/annotate/internal/db"
	"github.com/tgienger/annotate/internal/metrics"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/progress"
	"github.com/tgienger/annotate/internal/records"
	"github.com/tgienger/annotate/internal/stats"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the service-level settings
type Config struct {
	// OperatorInvite and WorkerInvite decide the role a registering user
	// receives. An empty code disables registration for that role.
	OperatorInvite string
	WorkerInvite   string

	LeaderboardLimit int
	StatsLocation    *time.Location
	StatsWindowDays  int
	BcryptCost       int
}

// Service coordinates the stores
type Service struct {
	db       *db.DB
	records  *records.Store
	progress *progress.Aggregator
	stats    *stats.Engine
	metrics  metrics.Collector
	log      logrus.FieldLogger
	cfg      Config
}

// Option configures a Service
type Option func(*Service)

// WithMetrics sets the metrics collector
func WithMetrics(m metrics.Collector) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a service over an opened, migrated database and a record store
func New(database *db.DB, store *records.Store, cfg Config, opts ...Option) *Service {
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = 10
	}
	if cfg.StatsLocation == nil {
		cfg.StatsLocation = time.Local
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	s := &Service{
		db:      database,
		records: store,
		metrics: metrics.NewNop(),
		log:     logrus.StandardLogger(),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.progress = progress.NewAggregator(database, database, store)
	s.stats = stats.NewEngine(database,
		stats.WithClock(database.Now),
		stats.WithLocation(cfg.StatsLocation),
		stats.WithWindowDays(cfg.StatsWindowDays),
	)
	return s
}

// Progress returns the completion state of a task for a worker
func (s *Service) Progress(taskID, workerID string) (models.Progress, error) {
	return s.progress.Progress(taskID, workerID)
}

// Rollup returns the aggregate completion over a worker's assigned tasks
func (s *Service) Rollup(workerID string) (models.Rollup, error) {
	return s.progress.Rollup(workerID)
}

// WorkerStats returns a worker's totals, per-task counts and recent activity
func (s *Service) WorkerStats(workerID string) (models.WorkerStats, error) {
	return s.stats.WorkerStats(workerID)
}

// Leaderboard returns the top limit workers; limit <= 0 uses the configured default
func (s *Service) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.cfg.LeaderboardLimit
	}
	return s.stats.Leaderboard(limit)
}

// Setting reads a persisted UI preference
func (s *Service) Setting(key string) (string, error) {
	return s.db.GetSetting(key)
}

// SetSetting persists a UI preference
func (s *Service) SetSetting(key, value string) error {
	return s.db.SetSetting(key, value)
}
