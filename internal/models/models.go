package models

import (
	"encoding/json"
	"time"
)

// Role is one of the two fixed user roles
type Role string

const (
	RoleOperator Role = "operator"
	RoleWorker   Role = "worker"
)

// Task status values. Transitions are operator driven.
const (
	StatusCreated    = "created"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task represents one unit of assignable labeling work, possibly a shard of a larger set
type Task struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Config       TaskConfig `json:"config"`
	Status       string     `json:"status"`
	DataPath     string     `json:"data_path"`
	Label        *string    `json:"label,omitempty"`
	ParentTaskID *string    `json:"parent_task_id,omitempty"` // nil unless the task is a shard
	SplitIndex   int        `json:"split_index"`
	TotalSplits  int        `json:"total_splits"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsShard reports whether the task came out of a partitioning operation
func (t *Task) IsShard() bool {
	return t.ParentTaskID != nil && t.TotalSplits > 1
}

// TaskConfig is the configuration blob stored with each task
type TaskConfig struct {
	SelectedFields   []string               `json:"selected_fields"`
	FieldConfigs     map[string]FieldConfig `json:"field_configs"`
	AnnotationConfig AnnotationForm         `json:"annotation_config"`
	BasePath         string                 `json:"base_path,omitempty"`
	TotalItems       int                    `json:"total_items"`
	SourceTotalItems int                    `json:"source_total_items"`
}

// AnnotationRecord is one ledger row, unique per (task, item index, worker)
type AnnotationRecord struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	ItemIndex int             `json:"item_index"`
	Result    json.RawMessage `json:"result"`
	WorkerID  string          `json:"worker_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Assignment links a task to the worker currently responsible for it
type Assignment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	AssignedTo string    `json:"assigned_to"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// User is an operator or a worker
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	DisplayName  string     `json:"display_name"`
	Email        string     `json:"email,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Progress is the derived completion state of a (task, worker) pair
type Progress struct {
	TaskID         string  `json:"task_id"`
	WorkerID       string  `json:"worker_id"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Percentage     float64 `json:"percentage"`
	UnsavedIndices []int   `json:"unsaved_indices"`
}

// Rollup aggregates progress over every task assigned to a worker
type Rollup struct {
	WorkerID   string     `json:"worker_id"`
	Tasks      []Progress `json:"tasks"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Percentage float64    `json:"percentage"`
}

// TaskCount is a worker's ledger row count on one task
type TaskCount struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
	Count    int    `json:"count"`
}

// DayCount is a worker's ledger row count on one calendar date (YYYY-MM-DD)
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WorkerStats summarizes a worker's annotation history
type WorkerStats struct {
	WorkerID   string      `json:"worker_id"`
	TotalCount int         `json:"total_count"`
	PerTask    []TaskCount `json:"per_task"`
	Recent     []DayCount  `json:"recent"`
}

// WorkerActivity is the raw per-worker aggregate the leaderboard is ranked from
type WorkerActivity struct {
	WorkerID    string    `json:"worker_id"`
	DisplayName string    `json:"display_name"`
	Count       int       `json:"count"`
	FirstAt     time.Time `json:"first_annotation"`
	LastAt      time.Time `json:"last_annotation"`
}

// LeaderboardEntry is one ranked leaderboard row
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	WorkerActivity
}
