package service

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/annotate/internal/models"
)

// Assign makes workerID the sole assignee of taskID, replacing any previous
// assignment. The worker must be an active worker and the assigner an operator.
func (s *Service) Assign(taskID, workerID, operatorID string) (*models.Assignment, error) {
	if _, err := s.db.GetTask(taskID); err != nil {
		return nil, err
	}

	worker, err := s.db.GetUser(workerID)
	if errors.Is(err, models.ErrUnknownUser) {
		return nil, errors.Wrapf(models.ErrUnknownWorker, "user %s", workerID)
	}
	if err != nil {
		return nil, err
	}
	if worker.Role != models.RoleWorker || !worker.IsActive {
		return nil, errors.Wrapf(models.ErrUnknownWorker, "user %s is not an active worker", worker.Username)
	}

	operator, err := s.db.GetUser(operatorID)
	if errors.Is(err, models.ErrUnknownUser) {
		return nil, errors.Wrapf(models.ErrNotOperator, "user %s", operatorID)
	}
	if err != nil {
		return nil, err
	}
	if operator.Role != models.RoleOperator {
		return nil, errors.Wrapf(models.ErrNotOperator, "user %s", operator.Username)
	}

	a, err := s.db.AssignTask(taskID, workerID, operatorID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"task_id":   taskID,
		"worker_id": workerID,
		"by":        operator.Username,
	}).Info("task assigned")
	return a, nil
}

// GetAssignment returns the live assignment of a task, or nil
func (s *Service) GetAssignment(taskID string) (*models.Assignment, error) {
	return s.db.GetAssignment(taskID)
}

// ListAssignedTasks returns the tasks currently assigned to workerID, most recent first
func (s *Service) ListAssignedTasks(workerID string) ([]models.Task, error) {
	return s.db.ListAssignedTasks(workerID)
}
