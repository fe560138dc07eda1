package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/partition"
	"github.com/tgienger/annotate/internal/records"
)

// NewTask describes an ingestion request
type NewTask struct {
	Name        string
	Description string
	Config      models.TaskConfig
	Records     []records.Record
	// Splits is the shard count; 1 creates a single unpartitioned task.
	Splits int
	Label  *string
}

// CreateTask validates and persists a record set as one task, or as Splits
// shard tasks sharing a fresh parent id. Nothing is persisted on failure.
func (s *Service) CreateTask(nt NewTask) ([]models.Task, error) {
	name := strings.TrimSpace(nt.Name)
	if name == "" {
		return nil, errors.Wrap(models.ErrInvalidTaskConfig, "task name is required")
	}
	if len(nt.Records) == 0 {
		return nil, errors.WithStack(models.ErrEmptyRecordSet)
	}
	if err := nt.Config.Validate(); err != nil {
		return nil, err
	}
	if problems := records.ValidatePaths(nt.Records, nt.Config.FieldConfigs, nt.Config.BasePath); len(problems) > 0 {
		return nil, errors.Wrapf(models.ErrInvalidTaskConfig, "%d missing files, first: %s", len(problems), problems[0])
	}

	return s.persist(name, nt.Description, nt.Config, nt.Records, nt.Splits, nt.Label)
}

// PartitionTask splits the records of an existing unpartitioned task into k
// new shard tasks, k >= 2. The source task and its ledger rows are left as they are.
func (s *Service) PartitionTask(taskID string, k int) ([]models.Task, error) {
	if k < 2 {
		return nil, errors.Wrapf(models.ErrInvalidSplitCount, "re-partitioning needs at least 2 shards, got %d", k)
	}
	task, err := s.db.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.IsShard() {
		return nil, errors.Wrapf(models.ErrInvalidSplitCount, "task %s is already a shard", taskID)
	}
	recs := s.records.ReadAll(task.DataPath)
	if len(recs) == 0 {
		return nil, errors.Wrapf(models.ErrEmptyRecordSet, "task %s", taskID)
	}
	return s.persist(task.Name, task.Description, task.Config, recs, k, task.Label)
}

// persist writes every shard resource first, then inserts all task rows in
// one transaction. Written resources are removed if anything fails.
func (s *Service) persist(name, description string, cfg models.TaskConfig, recs []records.Record, k int, label *string) ([]models.Task, error) {
	bounds, err := partition.Plan(len(recs), k)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if k > 1 {
		id := uuid.NewString()
		parentID = &id
	}

	var written []string
	cleanup := func() {
		for _, resource := range written {
			if err := s.records.Remove(resource); err != nil {
				s.log.WithError(err).WithField("resource", resource).Warn("failed to remove shard resource")
			}
		}
	}

	tasks := make([]*models.Task, 0, len(bounds))
	for _, b := range bounds {
		resource, err := s.records.Write(recs[b.Start:b.End])
		if err != nil {
			cleanup()
			return nil, err
		}
		written = append(written, resource)

		shardCfg := cfg
		shardCfg.TotalItems = b.Len()
		shardCfg.SourceTotalItems = len(recs)

		t := &models.Task{
			ID:           uuid.NewString(),
			Name:         name,
			Description:  description,
			Config:       shardCfg,
			Status:       models.StatusCreated,
			DataPath:     resource,
			Label:        label,
			ParentTaskID: parentID,
			SplitIndex:   b.Index,
			TotalSplits:  k,
		}
		if k > 1 {
			t.Name = fmt.Sprintf("%s [%d/%d]", name, b.Index+1, k)
		}
		tasks = append(tasks, t)
	}

	if err := s.db.CreateTasks(tasks); err != nil {
		cleanup()
		return nil, err
	}

	s.metrics.RecordTasksCreated(len(tasks))
	if k > 1 {
		s.metrics.RecordPartition(k)
	}
	s.log.WithFields(logrus.Fields{
		"name":    name,
		"records": len(recs),
		"shards":  k,
	}).Info("tasks created")

	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = *t
	}
	return out, nil
}

// GetTask returns a task by id
func (s *Service) GetTask(id string) (*models.Task, error) {
	return s.db.GetTask(id)
}

// ListTasks returns every task, newest first
func (s *Service) ListTasks() ([]models.Task, error) {
	return s.db.ListTasks()
}

// ListShards returns the shards sharing a parent id
func (s *Service) ListShards(parentID string) ([]models.Task, error) {
	return s.db.ListShards(parentID)
}

// Records returns the records backing a task, empty when unreadable
func (s *Service) Records(task *models.Task) []records.Record {
	return s.records.ReadAll(task.DataPath)
}

// UpdateStatus sets a task's lifecycle status
func (s *Service) UpdateStatus(id, status string) error {
	switch status {
	case models.StatusCreated, models.StatusInProgress, models.StatusCompleted:
	default:
		return errors.Wrapf(models.ErrInvalidTaskConfig, "unknown status %q", status)
	}
	return s.db.UpdateTaskStatus(id, status)
}
