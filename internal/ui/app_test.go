package ui

import (
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/records"
	"github.com/tgienger/annotate/internal/ui/views"
)

type fakeService struct {
	users    map[string]*models.User
	task     models.Task
	settings map[string]string
}

func newFakeService() *fakeService {
	walt := &models.User{ID: "u-1", Username: "walt", DisplayName: "Walt", Role: models.RoleWorker}
	return &fakeService{
		users:    map[string]*models.User{"u-1": walt, "walt": walt},
		task:     models.Task{ID: "t1", Name: "vowels"},
		settings: map[string]string{},
	}
}

func (f *fakeService) ListAssignedTasks(string) ([]models.Task, error) {
	return []models.Task{f.task}, nil
}

func (f *fakeService) Progress(taskID, workerID string) (models.Progress, error) {
	return models.Progress{TaskID: taskID, WorkerID: workerID, UnsavedIndices: []int{}}, nil
}

func (f *fakeService) Records(*models.Task) []records.Record { return nil }

func (f *fakeService) Save(string, int, string, json.RawMessage) (*models.AnnotationRecord, bool, error) {
	return nil, false, errors.New("not used")
}

func (f *fakeService) Get(string, int, string) (json.RawMessage, bool, error) {
	return nil, false, nil
}

func (f *fakeService) Leaderboard(int) ([]models.LeaderboardEntry, error) { return nil, nil }

func (f *fakeService) ResolveUser(ref string) (*models.User, error) {
	if u, ok := f.users[ref]; ok {
		return u, nil
	}
	return nil, errors.Wrap(models.ErrUnknownUser, ref)
}

func (f *fakeService) GetTask(id string) (*models.Task, error) {
	if id != f.task.ID {
		return nil, errors.Wrap(models.ErrUnknownTask, id)
	}
	t := f.task
	return &t, nil
}

func (f *fakeService) Setting(key string) (string, error) { return f.settings[key], nil }

func (f *fakeService) SetSetting(key, value string) error {
	f.settings[key] = value
	return nil
}

func TestAppNeedsWorker(t *testing.T) {
	a := NewApp(newFakeService(), "")
	assert.Nil(t, a.Init())
	assert.Nil(t, a.Worker())
	assert.Contains(t, a.View(), "no worker given")

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestAppUnknownWorker(t *testing.T) {
	a := NewApp(newFakeService(), "ghost")
	a.Init()
	assert.Nil(t, a.Worker())
	assert.Contains(t, a.View(), "unknown user")
}

func TestAppResolvesAndRemembersWorker(t *testing.T) {
	f := newFakeService()
	a := NewApp(f, "walt")
	require.NotNil(t, a.Init())
	require.NotNil(t, a.Worker())
	assert.Equal(t, "u-1", a.Worker().ID)
	assert.Equal(t, "u-1", f.settings[lastWorkerKey])
	assert.Equal(t, ViewTasks, a.CurrentView())

	// a later run without a ref picks the same worker
	b := NewApp(f, "")
	b.Init()
	require.NotNil(t, b.Worker())
	assert.Equal(t, "walt", b.Worker().Username)
}

func TestAppSwitchesViews(t *testing.T) {
	f := newFakeService()
	a := NewApp(f, "walt")
	a.Init()

	a.Update(views.SelectedTask{Task: f.task})
	assert.Equal(t, ViewAnnotate, a.CurrentView())
	assert.Equal(t, "t1", f.settings[lastTaskKey+"u-1"])

	a.Update(views.BackToTasks{})
	assert.Equal(t, ViewTasks, a.CurrentView())
	assert.Empty(t, f.settings[lastTaskKey+"u-1"])

	a.Update(views.ShowLeaderboard{})
	assert.Equal(t, ViewLeaderboard, a.CurrentView())
}

func TestAppReopensLastTask(t *testing.T) {
	f := newFakeService()
	f.settings[lastTaskKey+"u-1"] = "t1"

	a := NewApp(f, "u-1")
	a.Init()
	assert.Equal(t, ViewAnnotate, a.CurrentView())
}
