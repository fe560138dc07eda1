package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/annotate/internal/models"
)

type fakeLedger struct {
	total    int
	perTask  []models.TaskCount
	times    []time.Time
	since    time.Time
	activity []models.WorkerActivity
}

func (f *fakeLedger) CountByWorker(string) (int, error) { return f.total, nil }

func (f *fakeLedger) CountsByTask(string) ([]models.TaskCount, error) { return f.perTask, nil }

func (f *fakeLedger) CreatedSince(_ string, since time.Time) ([]time.Time, error) {
	f.since = since
	var out []time.Time
	for _, t := range f.times {
		if !t.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) WorkerActivity() ([]models.WorkerActivity, error) { return f.activity, nil }

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestRankSequentialWithTiebreak(t *testing.T) {
	activity := []models.WorkerActivity{
		{WorkerID: "c", Count: 3, FirstAt: at(1, 0)},
		{WorkerID: "b", Count: 5, FirstAt: at(2, 0)},
		{WorkerID: "a", Count: 5, FirstAt: at(1, 12)},
		{WorkerID: "idle", Count: 0},
	}

	entries := Rank(activity, 10)
	require.Len(t, entries, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
	// the tied workers are ordered by earliest first annotation
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].WorkerID, entries[1].WorkerID, entries[2].WorkerID})
}

func TestRankTieOnFirstAnnotationFallsBackToID(t *testing.T) {
	activity := []models.WorkerActivity{
		{WorkerID: "z", Count: 2, FirstAt: at(1, 0)},
		{WorkerID: "m", Count: 2, FirstAt: at(1, 0)},
	}
	entries := Rank(activity, 0)
	assert.Equal(t, "m", entries[0].WorkerID)
	assert.Equal(t, "z", entries[1].WorkerID)
}

func TestRankLimit(t *testing.T) {
	activity := []models.WorkerActivity{
		{WorkerID: "a", Count: 1},
		{WorkerID: "b", Count: 2},
		{WorkerID: "c", Count: 3},
	}
	entries := Rank(activity, 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].WorkerID)
	assert.Equal(t, 2, entries[1].Rank)

	assert.Empty(t, Rank(nil, 5))
}

func TestBucketsWindow(t *testing.T) {
	now := at(10, 15)
	times := []time.Time{
		at(10, 1), at(10, 14),
		at(8, 9),
		at(4, 0),  // first day of the window
		at(3, 23), // just outside
		at(11, 0), // future rows are ignored
	}

	got := Buckets(times, now, 7)
	assert.Equal(t, []models.DayCount{
		{Date: "2026-03-10", Count: 2},
		{Date: "2026-03-08", Count: 1},
		{Date: "2026-03-04", Count: 1},
	}, got)
}

func TestBucketsUseLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, tokyo)
	// 2026-03-09 20:00 UTC is already the 10th in Tokyo
	got := Buckets([]time.Time{time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)}, now, 7)
	assert.Equal(t, []models.DayCount{{Date: "2026-03-10", Count: 1}}, got)
}

func TestWorkerStats(t *testing.T) {
	ledger := &fakeLedger{
		total: 9,
		perTask: []models.TaskCount{
			{TaskID: "t1", TaskName: "one", Count: 6},
			{TaskID: "t2", TaskName: "two", Count: 3},
		},
		times: []time.Time{at(1, 0), at(9, 10), at(10, 9), at(10, 11)},
	}
	e := NewEngine(ledger, WithClock(func() time.Time { return at(10, 12) }), WithLocation(time.UTC))

	ws, err := e.WorkerStats("w")
	require.NoError(t, err)
	assert.Equal(t, 9, ws.TotalCount)
	assert.Equal(t, ledger.perTask, ws.PerTask)
	assert.Equal(t, []models.DayCount{
		{Date: "2026-03-10", Count: 2},
		{Date: "2026-03-09", Count: 1},
	}, ws.Recent)
	assert.Equal(t, at(4, 0), ledger.since)
}

func TestWorkerStatsUnknownWorker(t *testing.T) {
	e := NewEngine(&fakeLedger{})
	ws, err := e.WorkerStats("nobody")
	require.NoError(t, err)
	assert.Zero(t, ws.TotalCount)
	assert.Empty(t, ws.PerTask)
	assert.Empty(t, ws.Recent)
}

func TestLeaderboardFromStore(t *testing.T) {
	ledger := &fakeLedger{activity: []models.WorkerActivity{
		{WorkerID: "a", Count: 5, FirstAt: at(2, 0)},
		{WorkerID: "b", Count: 5, FirstAt: at(1, 0)},
		{WorkerID: "c", Count: 3, FirstAt: at(1, 0)},
	}}
	entries, err := NewEngine(ledger).Leaderboard(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].WorkerID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "a", entries[1].WorkerID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)
}
