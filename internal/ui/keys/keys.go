// Package keys defines the terminal UI key bindings.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding the views react to
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Prev  key.Binding
	Next  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding

	Edit        key.Binding
	NextUnsaved key.Binding
	Leaderboard key.Binding
	Refresh     key.Binding
	Help        key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev item"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next item"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Edit: key.NewBinding(
			key.WithKeys("i", "e"),
			key.WithHelp("i", "annotate"),
		),
		NextUnsaved: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "next unsaved"),
		),
		Leaderboard: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "leaderboard"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Leaderboard, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back},
		{k.Prev, k.Next, k.NextUnsaved, k.Edit},
		{k.Leaderboard, k.Refresh, k.Help, k.Quit},
	}
}
