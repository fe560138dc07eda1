package db

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

// CountByWorker returns a worker's total number of ledger rows across all tasks
func (db *DB) CountByWorker(workerID string) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM annotations WHERE worker_id = ?", workerID).Scan(&count)
	return count, errors.WithStack(err)
}

// CountsByTask groups a worker's ledger rows by task, largest count first,
// ties by task name
func (db *DB) CountsByTask(workerID string) ([]models.TaskCount, error) {
	rows, err := db.Query(`
		SELECT a.task_id, COALESCE(t.name, ''), COUNT(*) AS n
		FROM annotations a
		LEFT JOIN tasks t ON t.id = a.task_id
		WHERE a.worker_id = ?
		GROUP BY a.task_id
		ORDER BY n DESC, t.name ASC, a.task_id ASC
	`, workerID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var counts []models.TaskCount
	for rows.Next() {
		var c models.TaskCount
		if err := rows.Scan(&c.TaskID, &c.TaskName, &c.Count); err != nil {
			return nil, errors.WithStack(err)
		}
		counts = append(counts, c)
	}
	return counts, errors.WithStack(rows.Err())
}

// CreatedSince returns the creation times of a worker's ledger rows created at
// or after since
func (db *DB) CreatedSince(workerID string, since time.Time) ([]time.Time, error) {
	rows, err := db.Query(`
		SELECT created_at FROM annotations
		WHERE worker_id = ? AND created_at >= ?
		ORDER BY created_at
	`, workerID, since.UTC())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, errors.WithStack(err)
		}
		times = append(times, t)
	}
	return times, errors.WithStack(rows.Err())
}

// WorkerActivity aggregates the ledger per worker: row count, first and last
// annotation time. Display names come from users when the worker is registered.
// Rows are unordered; ranking is the caller's business.
func (db *DB) WorkerActivity() ([]models.WorkerActivity, error) {
	rows, err := db.Query(`
		SELECT a.worker_id, COALESCE(NULLIF(u.display_name, ''), u.username, ''), COUNT(*),
			MIN(a.created_at), MAX(a.updated_at)
		FROM annotations a
		LEFT JOIN users u ON u.id = a.worker_id
		GROUP BY a.worker_id
	`)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var out []models.WorkerActivity
	for rows.Next() {
		var w models.WorkerActivity
		var first, last string
		if err := rows.Scan(&w.WorkerID, &w.DisplayName, &w.Count, &first, &last); err != nil {
			return nil, errors.WithStack(err)
		}
		if w.FirstAt, err = parseTimestamp(first); err != nil {
			return nil, err
		}
		if w.LastAt, err = parseTimestamp(last); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, errors.WithStack(rows.Err())
}
