// Package ui is the worker-facing terminal interface.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/ui/styles"
	"github.com/tgienger/annotate/internal/ui/views"
)

const (
	lastWorkerKey = "last_worker_id"
	lastTaskKey   = "last_task_id:"
)

// Service is what the app needs from the annotation service
type Service interface {
	views.Service
	ResolveUser(ref string) (*models.User, error)
	GetTask(id string) (*models.Task, error)
	Setting(key string) (string, error)
	SetSetting(key, value string) error
}

// Currently active view
type View int

const (
	ViewTasks View = iota
	ViewAnnotate
	ViewLeaderboard
)

type App struct {
	svc         Service
	workerRef   string
	worker      *models.User
	currentView View
	taskList    *views.AssignedListView
	annotate    *views.AnnotateView
	leaderboard *views.LeaderboardView
	err         error
	width       int
	height      int
}

// NewApp creates the application for the worker named by workerRef (an ID or
// username). An empty ref falls back to the last worker that used the UI.
func NewApp(svc Service, workerRef string) *App {
	return &App{svc: svc, workerRef: workerRef}
}

func (a *App) Init() tea.Cmd {
	ref := a.workerRef
	if ref == "" {
		ref, _ = a.svc.Setting(lastWorkerKey)
	}
	if ref == "" {
		a.err = errors.New("no worker given; pass --worker")
		return nil
	}
	worker, err := a.svc.ResolveUser(ref)
	if err != nil {
		a.err = errors.Wrapf(err, "worker %q", ref)
		return nil
	}
	a.worker = worker
	_ = a.svc.SetSetting(lastWorkerKey, worker.ID)

	name := worker.DisplayName
	if name == "" {
		name = worker.Username
	}
	a.taskList = views.NewAssignedListView(a.svc, worker.ID, name)

	// Reopen the task the worker was last annotating
	if lastTaskID, err := a.svc.Setting(lastTaskKey + worker.ID); err == nil && lastTaskID != "" {
		if task, err := a.svc.GetTask(lastTaskID); err == nil {
			return tea.Batch(a.taskList.Init(), a.openTask(*task))
		}
	}
	return a.taskList.Init()
}

// Worker is the resolved worker, nil until Init succeeds
func (a *App) Worker() *models.User { return a.worker }

// CurrentView reports the active view
func (a *App) CurrentView() View { return a.currentView }

func (a *App) openTask(task models.Task) tea.Cmd {
	a.currentView = ViewAnnotate
	a.annotate = views.NewAnnotateView(a.svc, a.worker.ID, task)
	_ = a.svc.SetSetting(lastTaskKey+a.worker.ID, task.ID)
	return tea.Batch(a.annotate.Init(), a.resize)
}

func (a *App) resize() tea.Msg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = size.Width
		a.height = size.Height
	}
	if a.err != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return a, tea.Quit
		}
		return a, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// The task list persists behind the other views
		a.taskList.Update(msg)

	case views.SelectedTask:
		return a, a.openTask(msg.Task)

	case views.ShowLeaderboard:
		a.currentView = ViewLeaderboard
		a.leaderboard = views.NewLeaderboardView(a.svc, a.worker.ID)
		return a, tea.Batch(a.leaderboard.Init(), a.resize)

	case views.BackToTasks:
		if a.currentView == ViewAnnotate {
			_ = a.svc.SetSetting(lastTaskKey+a.worker.ID, "")
		}
		a.currentView = ViewTasks
		return a, tea.Batch(a.taskList.Init(), a.resize)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	case ViewAnnotate:
		_, cmd = a.annotate.Update(msg)
	case ViewLeaderboard:
		_, cmd = a.leaderboard.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	if a.err != nil {
		s := styles.NewStyles()
		content := lipgloss.JoinVertical(lipgloss.Left,
			s.ToastError.Render(a.err.Error()),
			s.TitleMuted.Render("Press any key to exit"),
		)
		return styles.CenterView(content, a.width, a.height)
	}

	switch a.currentView {
	case ViewAnnotate:
		if a.annotate != nil {
			return a.annotate.View()
		}
	case ViewLeaderboard:
		if a.leaderboard != nil {
			return a.leaderboard.View()
		}
	}
	return a.taskList.View()
}
