package views

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/annotate/internal/models"
	prog "github.com/tgienger/annotate/internal/progress"
	"github.com/tgienger/annotate/internal/records"
	"github.com/tgienger/annotate/internal/ui/keys"
	"github.com/tgienger/annotate/internal/ui/styles"
)

// AnnotateView walks a worker through the records of one task
type AnnotateView struct {
	svc      Service
	workerID string
	task     models.Task
	recs     []records.Record
	progress models.Progress

	index  int
	result json.RawMessage
	saved  bool

	input   textinput.Model
	editing bool
	bar     progress.Model

	toast    string
	toastErr bool

	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
	loaded bool
}

// NewAnnotateView creates the annotate view for task
func NewAnnotateView(svc Service, workerID string, task models.Task) *AnnotateView {
	s := styles.NewStyles()

	input := textinput.New()
	input.CharLimit = 500
	input.Placeholder = placeholder(task.Config.AnnotationConfig)

	from, to := styles.ProgressColors()

	return &AnnotateView{
		svc:      svc,
		workerID: workerID,
		task:     task,
		input:    input,
		bar:      progress.New(progress.WithGradient(from, to)),
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func placeholder(form models.AnnotationForm) string {
	if form.Placeholder != "" {
		return form.Placeholder
	}
	switch form.Type {
	case models.FormSingleChoice:
		return "option or number"
	case models.FormMultipleChoice:
		return "options, comma separated"
	case models.FormRating:
		return fmt.Sprintf("%d-%d", form.MinValue, form.MaxValue)
	}
	return "answer"
}

type taskLoadedMsg struct {
	recs     []records.Record
	progress models.Progress
}

type itemLoadedMsg struct {
	index  int
	result json.RawMessage
	saved  bool
}

type savedMsg struct {
	index    int
	result   json.RawMessage
	created  bool
	progress models.Progress
}

func (v *AnnotateView) Init() tea.Cmd {
	return v.loadTask
}

func (v *AnnotateView) loadTask() tea.Msg {
	recs := v.svc.Records(&v.task)
	p, err := v.svc.Progress(v.task.ID, v.workerID)
	if err != nil {
		return errMsg{err}
	}
	return taskLoadedMsg{recs: recs, progress: p}
}

func (v *AnnotateView) loadItem(index int) tea.Cmd {
	return func() tea.Msg {
		result, ok, err := v.svc.Get(v.task.ID, index, v.workerID)
		if err != nil {
			return errMsg{err}
		}
		return itemLoadedMsg{index: index, result: result, saved: ok}
	}
}

func (v *AnnotateView) save(index int, result json.RawMessage) tea.Cmd {
	return func() tea.Msg {
		_, created, err := v.svc.Save(v.task.ID, index, v.workerID, result)
		if err != nil {
			return errMsg{err}
		}
		p, err := v.svc.Progress(v.task.ID, v.workerID)
		if err != nil {
			return errMsg{err}
		}
		return savedMsg{index: index, result: result, created: created, progress: p}
	}
}

// Index is the record currently shown
func (v *AnnotateView) Index() int { return v.index }

func (v *AnnotateView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.bar.Width = clamp(contentWidth-20, 10, 60)
		v.input.Width = clamp(contentWidth-10, 20, 60)
		return v, nil

	case taskLoadedMsg:
		v.recs = msg.recs
		v.progress = msg.progress
		v.loaded = true
		start, ok := prog.NextUnsaved(v.progress, 0)
		if !ok {
			start = 0
		}
		return v, v.goTo(start)

	case itemLoadedMsg:
		if msg.index != v.index {
			return v, nil
		}
		v.result = msg.result
		v.saved = msg.saved
		return v, nil

	case savedMsg:
		v.progress = msg.progress
		verb := "updated"
		if msg.created {
			verb = "saved"
		}
		v.setToast(fmt.Sprintf("%s item %d: %s", verb, msg.index+1, models.FormatResult(msg.result)), false)
		if msg.index == v.index {
			v.result = msg.result
			v.saved = true
		}
		if next, ok := prog.NextUnsaved(v.progress, msg.index+1); ok {
			return v, v.goTo(next)
		}
		v.setToast(v.toast+" • all items annotated", false)
		return v, nil

	case errMsg:
		v.loaded = true
		v.setToast(msg.err.Error(), true)
		return v, nil

	case tea.KeyMsg:
		if v.editing {
			return v.updateEditing(msg)
		}
		return v.updateBrowsing(msg)
	}
	return v, nil
}

func (v *AnnotateView) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToTasks{} }
	case key.Matches(msg, v.keys.Prev):
		return v, v.goTo(v.index - 1)
	case key.Matches(msg, v.keys.Next):
		return v, v.goTo(v.index + 1)
	case key.Matches(msg, v.keys.NextUnsaved):
		next, ok := prog.NextUnsaved(v.progress, v.index+1)
		if !ok {
			v.setToast("all items annotated", false)
			return v, nil
		}
		return v, v.goTo(next)
	case key.Matches(msg, v.keys.Edit), key.Matches(msg, v.keys.Enter):
		if len(v.recs) == 0 {
			return v, nil
		}
		v.editing = true
		v.input.SetValue(models.FormatResult(v.result))
		v.input.CursorEnd()
		return v, v.input.Focus()
	}

	// single choice forms accept the option number directly
	form := v.task.Config.AnnotationConfig
	if form.Type == models.FormSingleChoice && len(v.recs) > 0 {
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(form.Options) {
			return v, v.submit(msg.String())
		}
	}
	return v, nil
}

func (v *AnnotateView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		v.input.Blur()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		cmd := v.submit(v.input.Value())
		if cmd != nil {
			v.editing = false
			v.input.Blur()
		}
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit parses typed input against the form; a parse failure stays local
func (v *AnnotateView) submit(input string) tea.Cmd {
	result, err := v.task.Config.AnnotationConfig.ParseInput(input)
	if err != nil {
		v.setToast(err.Error(), true)
		return nil
	}
	return v.save(v.index, result)
}

func (v *AnnotateView) goTo(index int) tea.Cmd {
	if len(v.recs) == 0 {
		return nil
	}
	index = clamp(index, 0, len(v.recs)-1)
	if index == v.index && v.result != nil {
		return nil
	}
	v.index = index
	v.result = nil
	v.saved = false
	return v.loadItem(index)
}

func (v *AnnotateView) setToast(text string, isErr bool) {
	v.toast = text
	v.toastErr = isErr
}

// View renders the view
func (v *AnnotateView) View() string {
	s := v.styles
	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(v.task.Name),
		v.bar.ViewAs(v.progress.Percentage/100)+" "+
			s.TitleMuted.Render(fmt.Sprintf("%d/%d", v.progress.Completed, v.progress.Total)),
	)

	if len(v.recs) == 0 {
		body := s.ToastError.Render("no records could be read for this task")
		return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, header, "", body, v.renderHelp()), v.width, v.height)
	}

	parts := []string{
		header,
		"",
		s.TitleMuted.Render(fmt.Sprintf("Item %d of %d", v.index+1, len(v.recs))) + "  " + v.renderState(),
		s.Panel.Width(clamp(styles.ContentWidth(v.width)-4, 20, styles.MaxWidth)).Render(v.renderRecord()),
		v.renderForm(),
	}
	if v.toast != "" {
		if v.toastErr {
			parts = append(parts, s.ToastError.Render(v.toast))
		} else {
			parts = append(parts, s.Toast.Render(v.toast))
		}
	}
	parts = append(parts, v.renderHelp())
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, parts...), v.width, v.height)
}

func (v *AnnotateView) renderState() string {
	if v.saved {
		return v.styles.Saved.Render("✓ saved: ") + v.styles.Result.Render(models.FormatResult(v.result))
	}
	return v.styles.Unsaved.Render("○ not annotated")
}

func (v *AnnotateView) renderRecord() string {
	s := v.styles
	fields, err := v.recs[v.index].Fields()
	if err != nil {
		return s.ToastError.Render(err.Error())
	}

	cfg := v.task.Config
	names := cfg.SelectedFields
	if len(names) == 0 {
		names = make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		fc, ok := cfg.FieldConfigs[name]
		if !ok {
			fc = models.FieldConfig{Type: models.RenderText}
		}
		b.WriteString(s.FieldName.Render(name))
		if fc.Type == models.RenderCode && fc.Language != "" {
			b.WriteString(s.TitleMuted.Render(" (" + fc.Language + ")"))
		}
		b.WriteString("\n")
		b.WriteString(v.renderField(fc, fields[name]))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *AnnotateView) renderField(fc models.FieldConfig, value any) string {
	s := v.styles
	text := fieldText(value)
	switch {
	case fc.IsFile():
		path := records.ResolvePath(v.task.Config.BasePath, text)
		label := s.FieldFile.Render(path)
		if _, err := os.Stat(path); err != nil {
			return label + s.ToastError.Render(" (missing)")
		}
		return label + s.TitleMuted.Render(" ("+string(fc.Type)+")")
	case fc.Type == models.RenderCode:
		return s.FieldCode.Render(text)
	default:
		return s.FieldText.Render(text)
	}
}

func fieldText(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		raw, err := codec.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

func (v *AnnotateView) renderForm() string {
	s := v.styles
	form := v.task.Config.AnnotationConfig

	var lines []string
	if form.Instruction != "" {
		lines = append(lines, s.FieldText.Render(form.Instruction))
	}
	if len(form.Options) > 0 {
		opts := make([]string, len(form.Options))
		for i, o := range form.Options {
			opts[i] = s.HelpKey.Render(strconv.Itoa(i+1)) + " " + o
		}
		lines = append(lines, strings.Join(opts, "   "))
	}
	inputStyle := s.Input
	if v.editing {
		inputStyle = s.InputFocused
	}
	lines = append(lines, inputStyle.Render(v.input.View()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *AnnotateView) renderHelp() string {
	s := v.styles
	if v.editing {
		return s.Help.Render(fmt.Sprintf("%s save • %s cancel", s.HelpKey.Render("↵"), s.HelpKey.Render("esc")))
	}
	return s.Help.Render(
		fmt.Sprintf("%s prev • %s next • %s next unsaved • %s annotate • %s back",
			s.HelpKey.Render("←"),
			s.HelpKey.Render("→"),
			s.HelpKey.Render("u"),
			s.HelpKey.Render("i"),
			s.HelpKey.Render("esc"),
		),
	)
}
