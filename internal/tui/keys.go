package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	QuitList  key.Binding
	Help      key.Binding
	Back      key.Binding
	NextFocus key.Binding
	PrevFocus key.Binding
	Submit    key.Binding
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	FilterAll key.Binding
	FilterAct key.Binding
	FilterCmp key.Binding
	Filter    key.Binding
	Refresh   key.Binding
	Compose   key.Binding
	Logout    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		QuitList:  key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		NextFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevFocus: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "space", "enter", "x"), key.WithHelp("space", "toggle")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		FilterAll: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "all")),
		FilterAct: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "active")),
		FilterCmp: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "completed")),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Compose:   key.NewBinding(key.WithKeys("a", "/", "i"), key.WithHelp("a", "add task")),
		Logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign out")),
	}
}

// listHints are shown in the footer while the list has focus.
func (k keyMap) listHints() []key.Binding {
	return []key.Binding{k.Toggle, k.Delete, k.Filter, k.Compose, k.Logout, k.Help, k.QuitList}
}

func (k keyMap) formHints() []key.Binding {
	return []key.Binding{k.Submit, k.NextFocus, k.Back, k.Quit}
}
