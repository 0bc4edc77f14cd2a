package tui

import (
	"github.com/TFMV/dollargraph/session"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Primary   key.Binding
	Secondary key.Binding
	Erase     key.Binding
	Cancel    key.Binding
	Arrange   key.Binding
	Help      key.Binding
	Quit      key.Binding

	NewVertex    key.Binding
	DeleteVertex key.Binding
	NewEdge      key.Binding
	DeleteEdge   key.Binding
	GiveTake     key.Binding
	ShortestPath key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Primary:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "click")),
		Secondary: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "take click")),
		Erase:     key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "erase value")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Arrange:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "arrange")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		NewVertex:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "new vertex")),
		DeleteVertex: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete vertex")),
		NewEdge:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "new edge")),
		DeleteEdge:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete edge")),
		GiveTake:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "give/take")),
		ShortestPath: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "shortest path")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Primary, k.Secondary, k.Cancel, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.NewVertex, k.DeleteVertex, k.NewEdge},
		{k.DeleteEdge, k.GiveTake, k.ShortestPath},
		{k.Primary, k.Secondary, k.Erase, k.Arrange},
		{k.Cancel, k.Help, k.Quit},
	}
}

// modeFor returns the tool bound to a mode key
func (k keyMap) modeFor(msg tea.KeyMsg) (session.Mode, bool) {
	bindings := []struct {
		binding key.Binding
		mode    session.Mode
	}{
		{k.NewVertex, session.NewVertex},
		{k.DeleteVertex, session.DeleteVertex},
		{k.NewEdge, session.NewEdge},
		{k.DeleteEdge, session.DeleteEdge},
		{k.GiveTake, session.GiveTake},
		{k.ShortestPath, session.ShortestPath},
	}
	for _, b := range bindings {
		if key.Matches(msg, b.binding) {
			return b.mode, true
		}
	}
	return session.Idle, false
}
