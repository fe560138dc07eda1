package db

import (
	"database/sql"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const taskColumns = `id, name, description, config, status, data_path, label,
	parent_task_id, split_index, total_splits, created_at`

// CreateTasks inserts tasks in a single transaction, so either every task
// exists afterwards or none does. CreatedAt is set on each task.
func (db *DB) CreateTasks(tasks []*models.Task) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.WithStack(err)
	}
	defer tx.Rollback()

	now := db.now()
	for _, t := range tasks {
		config, err := json.Marshal(t.Config)
		if err != nil {
			return errors.WithStack(err)
		}
		if t.Status == "" {
			t.Status = models.StatusCreated
		}
		if t.TotalSplits == 0 {
			t.TotalSplits = 1
		}
		t.CreatedAt = now
		_, err = tx.Exec(`
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Name, t.Description, string(config), t.Status, t.DataPath, t.Label,
			t.ParentTaskID, t.SplitIndex, t.TotalSplits, t.CreatedAt)
		if err != nil {
			return errors.Wrapf(err, "insert task %s", t.Name)
		}
	}
	return errors.WithStack(tx.Commit())
}

// GetTask retrieves a task by ID. A missing task yields models.ErrUnknownTask.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(models.ErrUnknownTask, "task %s", id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns all tasks, newest first, shards of one split in order
func (db *DB) ListTasks() ([]models.Task, error) {
	return db.queryTasks(`
		SELECT ` + taskColumns + ` FROM tasks
		ORDER BY created_at DESC, parent_task_id, split_index
	`)
}

// ListShards returns the sibling shards sharing parentID, in split order
func (db *DB) ListShards(parentID string) ([]models.Task, error) {
	return db.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE parent_task_id = ?
		ORDER BY split_index
	`, parentID)
}

// UpdateTaskStatus sets a task's status
func (db *DB) UpdateTaskStatus(id, status string) error {
	res, err := db.Exec("UPDATE tasks SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(models.ErrUnknownTask, "task %s", id)
	}
	return nil
}

func (db *DB) queryTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, errors.WithStack(rows.Err())
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var config string
	err := s.Scan(&t.ID, &t.Name, &t.Description, &config, &t.Status, &t.DataPath, &t.Label,
		&t.ParentTaskID, &t.SplitIndex, &t.TotalSplits, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if config != "" {
		if err := json.Unmarshal([]byte(config), &t.Config); err != nil {
			return nil, errors.Wrapf(err, "decode config of task %s", t.ID)
		}
	}
	return t, nil
}
