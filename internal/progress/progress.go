// Package progress derives completion state for (task, worker) pairs from the
// annotation ledger and the record store.
package progress

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

// Ledger is the part of the store progress reads saved indices from
type Ledger interface {
	SavedIndices(taskID, workerID string) ([]int, error)
}

// Tasks resolves tasks and a worker's assigned task set
type Tasks interface {
	GetTask(id string) (*models.Task, error)
	ListAssignedTasks(workerID string) ([]models.Task, error)
}

// Counter reports the record count of a backing resource, 0 when unreadable
type Counter interface {
	Length(resource string) int
}

// Aggregator computes progress and rollups
type Aggregator struct {
	tasks   Tasks
	ledger  Ledger
	records Counter
}

// NewAggregator creates an aggregator over the given collaborators
func NewAggregator(tasks Tasks, ledger Ledger, records Counter) *Aggregator {
	return &Aggregator{tasks: tasks, ledger: ledger, records: records}
}

// Progress returns the completion state of taskID for workerID. An unknown
// task or an unreadable backing resource yields all-zero progress.
func (a *Aggregator) Progress(taskID, workerID string) (models.Progress, error) {
	task, err := a.tasks.GetTask(taskID)
	if errors.Is(err, models.ErrUnknownTask) {
		return Compute(taskID, workerID, 0, nil), nil
	}
	if err != nil {
		return models.Progress{}, err
	}
	return a.forTask(task, workerID)
}

// Rollup sums totals and completions over every task assigned to workerID
// before deriving the overall percentage, so small tasks do not skew it.
func (a *Aggregator) Rollup(workerID string) (models.Rollup, error) {
	tasks, err := a.tasks.ListAssignedTasks(workerID)
	if err != nil {
		return models.Rollup{}, err
	}

	r := models.Rollup{WorkerID: workerID, Tasks: make([]models.Progress, 0, len(tasks))}
	for i := range tasks {
		p, err := a.forTask(&tasks[i], workerID)
		if err != nil {
			return models.Rollup{}, err
		}
		r.Tasks = append(r.Tasks, p)
		r.Total += p.Total
		r.Completed += p.Completed
	}
	r.Percentage = Percentage(r.Completed, r.Total)
	return r, nil
}

func (a *Aggregator) forTask(task *models.Task, workerID string) (models.Progress, error) {
	total := a.records.Length(task.DataPath)
	saved, err := a.ledger.SavedIndices(task.ID, workerID)
	if err != nil {
		return models.Progress{}, err
	}
	return Compute(task.ID, workerID, total, saved), nil
}

// Compute derives progress from a record count and the saved indices. Indices
// outside [0, total) are ignored so completed + len(unsaved) == total always holds.
func Compute(taskID, workerID string, total int, saved []int) models.Progress {
	p := models.Progress{TaskID: taskID, WorkerID: workerID, Total: total, UnsavedIndices: []int{}}
	if total <= 0 {
		p.Total = 0
		return p
	}

	done := make([]bool, total)
	for _, idx := range saved {
		if idx >= 0 && idx < total && !done[idx] {
			done[idx] = true
			p.Completed++
		}
	}
	for idx, ok := range done {
		if !ok {
			p.UnsavedIndices = append(p.UnsavedIndices, idx)
		}
	}
	p.Percentage = Percentage(p.Completed, total)
	return p
}

// Percentage returns completed/total*100 rounded to two decimals, 0 for an empty total
func Percentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// NextUnsaved returns the first unsaved index at or after from, wrapping
// around to the start; ok is false when everything is saved.
func NextUnsaved(p models.Progress, from int) (int, bool) {
	if len(p.UnsavedIndices) == 0 {
		return 0, false
	}
	i, _ := slices.BinarySearch(p.UnsavedIndices, from)
	if i == len(p.UnsavedIndices) {
		i = 0
	}
	return p.UnsavedIndices[i], true
}
