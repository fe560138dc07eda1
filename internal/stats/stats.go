// Package stats aggregates the annotation ledger into per-worker statistics
// and a ranked leaderboard.
package stats

import (
	"sort"
	"time"

	"github.com/tgienger/annotate/internal/models"
)

// DefaultWindowDays is the length of the trailing activity window, today included
const DefaultWindowDays = 7

const dateLayout = "2006-01-02"

// Store is the ledger view the engine aggregates over
type Store interface {
	CountByWorker(workerID string) (int, error)
	CountsByTask(workerID string) ([]models.TaskCount, error)
	CreatedSince(workerID string, since time.Time) ([]time.Time, error)
	WorkerActivity() ([]models.WorkerActivity, error)
}

// Engine computes worker stats and the leaderboard
type Engine struct {
	store      Store
	now        func() time.Time
	loc        *time.Location
	windowDays int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source used to find "today"
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone calendar dates are bucketed in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithWindowDays sets the trailing window length
func WithWindowDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// NewEngine creates an engine over store
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now, loc: time.Local, windowDays: DefaultWindowDays}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorkerStats returns a worker's full-history total, per-task breakdown and
// trailing-window daily activity. An unknown worker yields empty stats.
func (e *Engine) WorkerStats(workerID string) (models.WorkerStats, error) {
	ws := models.WorkerStats{WorkerID: workerID, PerTask: []models.TaskCount{}, Recent: []models.DayCount{}}

	total, err := e.store.CountByWorker(workerID)
	if err != nil {
		return ws, err
	}
	ws.TotalCount = total
	if total == 0 {
		return ws, nil
	}

	perTask, err := e.store.CountsByTask(workerID)
	if err != nil {
		return ws, err
	}
	ws.PerTask = perTask

	now := e.now().In(e.loc)
	since := WindowStart(now, e.windowDays)
	times, err := e.store.CreatedSince(workerID, since)
	if err != nil {
		return ws, err
	}
	ws.Recent = Buckets(times, now, e.windowDays)
	return ws, nil
}

// Leaderboard ranks every worker with at least one ledger row. limit <= 0
// returns the full ranking.
func (e *Engine) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	activity, err := e.store.WorkerActivity()
	if err != nil {
		return nil, err
	}
	return Rank(activity, limit), nil
}

// Rank orders workers by row count descending. Ties go to the worker whose
// first annotation is earliest, then to the smaller worker ID. Ranks are
// sequential 1..n with no shared positions.
func Rank(activity []models.WorkerActivity, limit int) []models.LeaderboardEntry {
	ranked := make([]models.WorkerActivity, 0, len(activity))
	for _, a := range activity {
		if a.Count > 0 {
			ranked = append(ranked, a)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.FirstAt.Equal(b.FirstAt) {
			return a.FirstAt.Before(b.FirstAt)
		}
		return a.WorkerID < b.WorkerID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	entries := make([]models.LeaderboardEntry, len(ranked))
	for i, a := range ranked {
		entries[i] = models.LeaderboardEntry{Rank: i + 1, WorkerActivity: a}
	}
	return entries
}

// WindowStart returns midnight of the first day of a days-long window ending today
func WindowStart(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-(days-1), 0, 0, 0, 0, now.Location())
}

// Buckets counts times per calendar date (in now's location) inside the
// window, most recent date first, omitting dates with no activity.
func Buckets(times []time.Time, now time.Time, days int) []models.DayCount {
	start := WindowStart(now, days)
	y, m, d := now.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())

	counts := map[string]int{}
	for _, t := range times {
		local := t.In(now.Location())
		if local.Before(start) || !local.Before(end) {
			continue
		}
		counts[local.Format(dateLayout)]++
	}

	out := make([]models.DayCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, models.DayCount{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}
