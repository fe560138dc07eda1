package db

import (
	"database/sql"
	stdjson "encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

// SaveAnnotation upserts the ledger row for (taskID, itemIndex, workerID).
// The statement is atomic on the unique index, so concurrent saves of the same
// key update one row instead of inserting duplicates. It reports whether the
// row was newly created.
func (db *DB) SaveAnnotation(taskID string, itemIndex int, workerID string, result stdjson.RawMessage) (*models.AnnotationRecord, bool, error) {
	newID := uuid.NewString()
	now := db.now()

	var id string
	err := db.QueryRow(`
		INSERT INTO annotations (id, task_id, item_index, result, worker_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, item_index, worker_id) DO UPDATE SET
			result = excluded.result,
			updated_at = excluded.updated_at
		RETURNING id
	`, newID, taskID, itemIndex, string(result), workerID, now, now).Scan(&id)
	if err != nil {
		return nil, false, errors.Wrapf(err, "save annotation %s/%d/%s", taskID, itemIndex, workerID)
	}

	rec, err := db.GetAnnotation(taskID, itemIndex, workerID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, errors.Errorf("annotation %s vanished after save", id)
	}
	return rec, id == newID, nil
}

// GetAnnotation returns the ledger row for the key, or nil if there is none
func (db *DB) GetAnnotation(taskID string, itemIndex int, workerID string) (*models.AnnotationRecord, error) {
	row := db.QueryRow(`
		SELECT id, task_id, item_index, result, worker_id, created_at, updated_at
		FROM annotations
		WHERE task_id = ? AND item_index = ? AND worker_id = ?
	`, taskID, itemIndex, workerID)
	rec, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// AnnotationExists reports whether a ledger row exists for the key
func (db *DB) AnnotationExists(taskID string, itemIndex int, workerID string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM annotations
			WHERE task_id = ? AND item_index = ? AND worker_id = ?
		)
	`, taskID, itemIndex, workerID).Scan(&exists)
	return exists, errors.WithStack(err)
}

// SavedIndices returns the distinct item indices a worker has saved on a task, ascending
func (db *DB) SavedIndices(taskID, workerID string) ([]int, error) {
	rows, err := db.Query(`
		SELECT DISTINCT item_index FROM annotations
		WHERE task_id = ? AND worker_id = ?
		ORDER BY item_index
	`, taskID, workerID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, errors.WithStack(err)
		}
		indices = append(indices, idx)
	}
	return indices, errors.WithStack(rows.Err())
}

// ListAnnotations returns a worker's ledger rows on a task, ordered by item index
func (db *DB) ListAnnotations(taskID, workerID string) ([]models.AnnotationRecord, error) {
	rows, err := db.Query(`
		SELECT id, task_id, item_index, result, worker_id, created_at, updated_at
		FROM annotations
		WHERE task_id = ? AND worker_id = ?
		ORDER BY item_index
	`, taskID, workerID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var recs []models.AnnotationRecord
	for rows.Next() {
		rec, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, errors.WithStack(rows.Err())
}

// CountAnnotationRows returns the raw number of ledger rows for a key.
// With the unique index in place this is always 0 or 1.
func (db *DB) CountAnnotationRows(taskID string, itemIndex int, workerID string) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM annotations
		WHERE task_id = ? AND item_index = ? AND worker_id = ?
	`, taskID, itemIndex, workerID).Scan(&n)
	return n, errors.WithStack(err)
}

func scanAnnotation(s scanner) (*models.AnnotationRecord, error) {
	rec := &models.AnnotationRecord{}
	var result string
	err := s.Scan(&rec.ID, &rec.TaskID, &rec.ItemIndex, &result, &rec.WorkerID, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rec.Result = stdjson.RawMessage(result)
	return rec, nil
}
