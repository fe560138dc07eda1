package views

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/ui/keys"
	"github.com/tgienger/annotate/internal/ui/styles"
)

type taskItem struct {
	task     models.Task
	progress models.Progress
}

func (i taskItem) Title() string { return i.task.Name }
func (i taskItem) Description() string {
	return fmt.Sprintf("%d/%d annotated", i.progress.Completed, i.progress.Total)
}
func (i taskItem) FilterValue() string { return i.task.Name }

type taskDelegate struct {
	styles *styles.Styles
	bar    *progress.Model
	width  int
}

func (d taskDelegate) Height() int                               { return 2 }
func (d taskDelegate) Spacing() int                              { return 1 }
func (d taskDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	t, ok := item.(taskItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	titleStyle := d.styles.ListItem.Width(width)
	if index == m.Index() {
		titleStyle = d.styles.ListSelected.Width(width)
	}

	d.bar.Width = clamp(width-24, 10, 40)
	line := d.styles.ListItem.Render(d.bar.ViewAs(t.progress.Percentage/100)) + " " +
		d.styles.TitleMuted.Render(t.Description())

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(t.Title()), line)
}

// AssignedListView lists the tasks assigned to the worker with their progress
type AssignedListView struct {
	svc      Service
	workerID string
	list     list.Model
	delegate *taskDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	err      error

	showHelpPopup bool
}

// NewAssignedListView creates the task list for workerID
func NewAssignedListView(svc Service, workerID, workerName string) *AssignedListView {
	s := styles.NewStyles()

	from, to := styles.ProgressColors()
	bar := progress.New(progress.WithGradient(from, to), progress.WithoutPercentage())
	delegate := &taskDelegate{styles: s, bar: &bar, width: styles.MaxWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Tasks for " + workerName
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &AssignedListView{
		svc:      svc,
		workerID: workerID,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func (v *AssignedListView) Init() tea.Cmd {
	return v.loadTasks
}

type tasksLoadedMsg struct {
	items []taskItem
}

func (v *AssignedListView) loadTasks() tea.Msg {
	tasks, err := v.svc.ListAssignedTasks(v.workerID)
	if err != nil {
		return errMsg{err}
	}
	items := make([]taskItem, 0, len(tasks))
	for _, t := range tasks {
		p, err := v.svc.Progress(t.ID, v.workerID)
		if err != nil {
			return errMsg{err}
		}
		items = append(items, taskItem{task: t, progress: p})
	}
	return tasksLoadedMsg{items: items}
}

func (v *AssignedListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-6)
		return v, nil

	case tasksLoadedMsg:
		items := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			items[i] = it
		}
		v.list.SetItems(items)
		v.loaded = true
		v.err = nil
		return v, nil

	case errMsg:
		v.loaded = true
		v.err = msg.err
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Refresh):
			return v, v.loadTasks
		case key.Matches(msg, v.keys.Leaderboard):
			return v, func() tea.Msg { return ShowLeaderboard{} }
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(taskItem); ok {
				return v, func() tea.Msg {
					return SelectedTask{Task: item.task}
				}
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View renders the view
func (v *AssignedListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}
	if v.err != nil {
		return styles.CenterView(v.styles.ToastError.Render("error: "+v.err.Error()), v.width, v.height)
	}
	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n" + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *AssignedListView) renderEmpty() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Assigned Tasks"),
		"",
		s.TitleMuted.Render("Ask an operator to assign you a task"),
		"",
		s.Help.Render(s.HelpKey.Render("r")+" refresh • "+s.HelpKey.Render("q")+" quit"),
	)
	centered := lipgloss.Place(styles.ContentWidth(v.width), v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *AssignedListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s leaderboard • %s refresh • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("b"),
			v.styles.HelpKey.Render("r"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *AssignedListView) renderHelpPopup() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Keys"),
		"",
		s.HelpKey.Render("↵")+"      open task",
		s.HelpKey.Render("/")+"      filter",
		s.HelpKey.Render("b")+"      leaderboard",
		s.HelpKey.Render("r")+"      refresh",
		s.HelpKey.Render("q")+"      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	)
	centered := lipgloss.Place(styles.ContentWidth(v.width), v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
