package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

// AssignTask makes workerID the only assignee of taskID. Any previous
// assignment row for the task is deleted in the same transaction; no history
// is kept.
func (db *DB) AssignTask(taskID, workerID, operatorID string) (*models.Assignment, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM task_assignments WHERE task_id = ?", taskID); err != nil {
		return nil, errors.WithStack(err)
	}

	a := &models.Assignment{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		AssignedTo: workerID,
		AssignedBy: operatorID,
		AssignedAt: db.now(),
	}
	_, err = tx.Exec(`
		INSERT INTO task_assignments (id, task_id, assigned_to, assigned_by, assigned_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.AssignedTo, a.AssignedBy, a.AssignedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "assign task %s", taskID)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WithStack(err)
	}
	return a, nil
}

// GetAssignment returns the live assignment of a task, or nil if it has none
func (db *DB) GetAssignment(taskID string) (*models.Assignment, error) {
	a := &models.Assignment{}
	err := db.QueryRow(`
		SELECT id, task_id, assigned_to, assigned_by, assigned_at
		FROM task_assignments WHERE task_id = ?
	`, taskID).Scan(&a.ID, &a.TaskID, &a.AssignedTo, &a.AssignedBy, &a.AssignedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return a, nil
}

// ListAssignedTasks returns the tasks currently assigned to a worker, most
// recently assigned first
func (db *DB) ListAssignedTasks(workerID string) ([]models.Task, error) {
	return db.queryTasks(`
		SELECT t.id, t.name, t.description, t.config, t.status, t.data_path, t.label,
			t.parent_task_id, t.split_index, t.total_splits, t.created_at
		FROM tasks t
		JOIN task_assignments a ON a.task_id = t.id
		WHERE a.assigned_to = ?
		ORDER BY a.assigned_at DESC, a.rowid DESC
	`, workerID)
}
