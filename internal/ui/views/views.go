// Package views holds the bubbletea models for each screen of the worker UI.
package views

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/records"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Service is what the views need from the annotation service
type Service interface {
	ListAssignedTasks(workerID string) ([]models.Task, error)
	Progress(taskID, workerID string) (models.Progress, error)
	Records(task *models.Task) []records.Record
	Save(taskID string, itemIndex int, workerID string, result json.RawMessage) (*models.AnnotationRecord, bool, error)
	Get(taskID string, itemIndex int, workerID string) (json.RawMessage, bool, error)
	Leaderboard(limit int) ([]models.LeaderboardEntry, error)
}

// SelectedTask is sent when the worker opens a task
type SelectedTask struct {
	Task models.Task
}

// BackToTasks is sent when the worker leaves the annotate or leaderboard view
type BackToTasks struct{}

// ShowLeaderboard is sent when the worker opens the leaderboard
type ShowLeaderboard struct{}

type errMsg struct {
	err error
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
