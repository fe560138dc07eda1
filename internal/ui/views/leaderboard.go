package views

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/ui/keys"
	"github.com/tgienger/annotate/internal/ui/styles"
)

const lastLayout = "2006-01-02 15:04"

// LeaderboardView shows the ranked workers, highlighting the current one
type LeaderboardView struct {
	svc      Service
	workerID string
	table    table.Model
	entries  []models.LeaderboardEntry
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	err      error
}

// NewLeaderboardView creates the leaderboard view
func NewLeaderboardView(svc Service, workerID string) *LeaderboardView {
	s := styles.NewStyles()

	t := table.New(
		table.WithColumns(leaderboardColumns(styles.MaxWidth)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Current.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(styles.Current.Primary).
		Background(styles.Current.Selection).
		Bold(true)
	t.SetStyles(ts)

	return &LeaderboardView{
		svc:      svc,
		workerID: workerID,
		table:    t,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func leaderboardColumns(width int) []table.Column {
	name := clamp(width-4-6-8-18-8, 10, 40)
	return []table.Column{
		{Title: "Rank", Width: 6},
		{Title: "Worker", Width: name},
		{Title: "Items", Width: 8},
		{Title: "Last active", Width: 18},
	}
}

type leaderboardLoadedMsg struct {
	entries []models.LeaderboardEntry
}

func (v *LeaderboardView) Init() tea.Cmd {
	return v.load
}

func (v *LeaderboardView) load() tea.Msg {
	entries, err := v.svc.Leaderboard(0)
	if err != nil {
		return errMsg{err}
	}
	return leaderboardLoadedMsg{entries: entries}
}

// Rows returns the rendered table rows
func (v *LeaderboardView) Rows() []table.Row {
	return v.table.Rows()
}

func (v *LeaderboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.table.SetColumns(leaderboardColumns(contentWidth))
		v.table.SetHeight(clamp(msg.Height-8, 3, 30))
		return v, nil

	case leaderboardLoadedMsg:
		v.entries = msg.entries
		rows := make([]table.Row, len(msg.entries))
		cursor := 0
		for i, e := range msg.entries {
			name := e.DisplayName
			if name == "" {
				name = e.WorkerID
			}
			if e.WorkerID == v.workerID {
				name += " (you)"
				cursor = i
			}
			rows[i] = table.Row{
				strconv.Itoa(e.Rank),
				name,
				strconv.Itoa(e.Count),
				e.LastAt.Local().Format(lastLayout),
			}
		}
		v.table.SetRows(rows)
		v.table.SetCursor(cursor)
		v.loaded = true
		v.err = nil
		return v, nil

	case errMsg:
		v.loaded = true
		v.err = msg.err
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Leaderboard):
			return v, func() tea.Msg { return BackToTasks{} }
		case key.Matches(msg, v.keys.Refresh):
			return v, v.load
		}
	}

	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return v, cmd
}

// View renders the view
func (v *LeaderboardView) View() string {
	s := v.styles
	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}

	var body string
	switch {
	case v.err != nil:
		body = s.ToastError.Render("error: " + v.err.Error())
	case len(v.entries) == 0:
		body = s.TitleMuted.Render("Nobody has annotated anything yet")
	default:
		body = s.Panel.Render(v.table.View())
	}

	help := s.Help.Render(fmt.Sprintf("%s move • %s refresh • %s back",
		s.HelpKey.Render("↑/↓"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("esc"),
	))
	content := lipgloss.JoinVertical(lipgloss.Left, s.Title.Render("Leaderboard"), "", body, help)
	return styles.CenterView(content, v.width, v.height)
}
