package progress

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/annotate/internal/models"
)

type fakeStore struct {
	tasks    map[string]*models.Task
	assigned map[string][]string
	saved    map[string][]int
	lengths  map[string]int
}

func (f *fakeStore) GetTask(id string) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, errors.Wrap(models.ErrUnknownTask, id)
	}
	return t, nil
}

func (f *fakeStore) ListAssignedTasks(workerID string) ([]models.Task, error) {
	var out []models.Task
	for _, id := range f.assigned[workerID] {
		out = append(out, *f.tasks[id])
	}
	return out, nil
}

func (f *fakeStore) SavedIndices(taskID, workerID string) ([]int, error) {
	return f.saved[taskID+"/"+workerID], nil
}

func (f *fakeStore) Length(resource string) int {
	return f.lengths[resource]
}

func newFake() *fakeStore {
	return &fakeStore{
		tasks: map[string]*models.Task{
			"t1":   {ID: "t1", DataPath: "t1.jsonl"},
			"t2":   {ID: "t2", DataPath: "t2.jsonl"},
			"gone": {ID: "gone", DataPath: "gone.jsonl"},
		},
		assigned: map[string][]string{"w": {"t1", "t2"}},
		saved: map[string][]int{
			"t1/w":   {0, 2, 4},
			"t2/w":   {0},
			"gone/w": {0, 1},
		},
		lengths: map[string]int{"t1.jsonl": 5, "t2.jsonl": 95},
	}
}

func TestComputeExample(t *testing.T) {
	p := Compute("t", "w", 5, []int{0, 2, 4})
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 3, p.Completed)
	assert.Equal(t, 60.0, p.Percentage)
	assert.Equal(t, []int{1, 3}, p.UnsavedIndices)
}

func TestComputeConsistency(t *testing.T) {
	saved := []int{7, 3, 3, 0, 12, -1, 9}
	p := Compute("t", "w", 10, saved)

	assert.Equal(t, p.Total-len(p.UnsavedIndices), p.Completed)
	for i := 1; i < len(p.UnsavedIndices); i++ {
		assert.Less(t, p.UnsavedIndices[i-1], p.UnsavedIndices[i])
	}
	for _, idx := range p.UnsavedIndices {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 10)
	}
	assert.Equal(t, []int{1, 2, 4, 5, 6, 8}, p.UnsavedIndices)
}

func TestComputeRounding(t *testing.T) {
	assert.Equal(t, 33.33, Compute("t", "w", 3, []int{0}).Percentage)
	assert.Equal(t, 66.67, Compute("t", "w", 3, []int{0, 1}).Percentage)
	assert.Equal(t, 100.0, Compute("t", "w", 3, []int{0, 1, 2}).Percentage)
}

func TestProgressUnreadableResource(t *testing.T) {
	a := NewAggregator(newFake(), newFake(), newFake())

	p, err := a.Progress("gone", "w")
	require.NoError(t, err)
	assert.Equal(t, models.Progress{TaskID: "gone", WorkerID: "w", UnsavedIndices: []int{}}, p)
}

func TestProgressUnknownTask(t *testing.T) {
	f := newFake()
	a := NewAggregator(f, f, f)

	p, err := a.Progress("missing", "w")
	require.NoError(t, err)
	assert.Zero(t, p.Total)
	assert.Zero(t, p.Completed)
	assert.Empty(t, p.UnsavedIndices)
}

func TestRollupSumsBeforeDividing(t *testing.T) {
	f := newFake()
	a := NewAggregator(f, f, f)

	r, err := a.Rollup("w")
	require.NoError(t, err)
	require.Len(t, r.Tasks, 2)
	assert.Equal(t, 100, r.Total)
	assert.Equal(t, 4, r.Completed)
	// averaging per-task percentages would give (60 + 1.05) / 2
	assert.Equal(t, 4.0, r.Percentage)
}

func TestRollupNoAssignments(t *testing.T) {
	f := newFake()
	a := NewAggregator(f, f, f)

	r, err := a.Rollup("nobody")
	require.NoError(t, err)
	assert.Empty(t, r.Tasks)
	assert.Zero(t, r.Percentage)
}

func TestNextUnsaved(t *testing.T) {
	p := Compute("t", "w", 6, []int{0, 1, 3})

	next, ok := NextUnsaved(p, 0)
	require.True(t, ok)
	assert.Equal(t, 2, next)

	next, ok = NextUnsaved(p, 4)
	require.True(t, ok)
	assert.Equal(t, 4, next)

	next, ok = NextUnsaved(p, 6)
	require.True(t, ok)
	assert.Equal(t, 2, next)

	_, ok = NextUnsaved(Compute("t", "w", 2, []int{0, 1}), 0)
	assert.False(t, ok)
}
