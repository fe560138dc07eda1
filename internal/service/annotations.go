package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/annotate/internal/metrics"
	"github.com/tgienger/annotate/internal/models"
)

// Save records workerID's result for one item. Repeated saves of the same
// (task, index, worker) overwrite the single ledger row. created reports
// whether the row was new.
func (s *Service) Save(taskID string, itemIndex int, workerID string, result json.RawMessage) (rec *models.AnnotationRecord, created bool, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveSaveLatency(time.Since(start).Seconds())
		switch {
		case err == nil && created:
			s.metrics.RecordSave(metrics.OutcomeCreated)
		case err == nil:
			s.metrics.RecordSave(metrics.OutcomeUpdated)
		case isRejection(err):
			s.metrics.RecordSave(metrics.OutcomeRejected)
		default:
			s.metrics.RecordSave(metrics.OutcomeError)
		}
	}()

	if strings.TrimSpace(workerID) == "" {
		return nil, false, errors.Wrap(models.ErrUnknownWorker, "worker id is required")
	}
	task, err := s.db.GetTask(taskID)
	if err != nil {
		return nil, false, err
	}
	if total := s.records.Length(task.DataPath); itemIndex < 0 || itemIndex >= total {
		return nil, false, errors.Wrapf(models.ErrIndexOutOfRange, "index %d of %d", itemIndex, total)
	}
	if err := task.Config.AnnotationConfig.CheckResult(result); err != nil {
		return nil, false, err
	}

	rec, created, err = s.db.SaveAnnotation(taskID, itemIndex, workerID, result)
	if err != nil {
		return nil, false, err
	}

	if task.Status == models.StatusCreated {
		if err := s.db.UpdateTaskStatus(taskID, models.StatusInProgress); err != nil {
			s.log.WithError(err).WithField("task_id", taskID).Warn("failed to mark task in progress")
		}
	}

	s.log.WithFields(logrus.Fields{
		"task_id":    taskID,
		"item_index": itemIndex,
		"worker_id":  workerID,
		"created":    created,
	}).Debug("annotation saved")
	return rec, created, nil
}

// Get returns workerID's saved result for an item; ok is false when nothing is saved
func (s *Service) Get(taskID string, itemIndex int, workerID string) (result json.RawMessage, ok bool, err error) {
	rec, err := s.db.GetAnnotation(taskID, itemIndex, workerID)
	if err != nil || rec == nil {
		return nil, false, err
	}
	return rec.Result, true, nil
}

// IsSaved reports whether workerID has a ledger row for the item
func (s *Service) IsSaved(taskID string, itemIndex int, workerID string) (bool, error) {
	return s.db.AnnotationExists(taskID, itemIndex, workerID)
}

func isRejection(err error) bool {
	for _, target := range []error{
		models.ErrUnknownTask,
		models.ErrUnknownWorker,
		models.ErrIndexOutOfRange,
		models.ErrInvalidResult,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
