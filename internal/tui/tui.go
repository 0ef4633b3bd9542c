package tui

import (
	"context"

	"getitdone/internal/model"
	"getitdone/internal/store"
	"getitdone/internal/todo"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive TUI and blocks until the user quits. The change
// subscription is closed on the way out and the filter is remembered in the
// data directory for the next launch.
func Run(ctx context.Context, svc *todo.Service, prefs *store.TUIConfig, st store.Store) error {
	theme, glyphPref := "", ""
	if prefs != nil {
		theme, glyphPref = prefs.Theme, prefs.Glyphs
	}
	configTheme = theme
	applyColorProfilePreference()
	applyThemePreference(theme)
	applyGlyphPreference(glyphPref)

	m := newAppModel(ctx, svc)
	m.filter = restoreFilter(st)

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		fm.closeSubscription()
		_ = st.SaveTUIState(&store.TUIState{Filter: string(fm.filter)})
	}
	return err
}

func restoreFilter(st store.Store) model.Filter {
	s, err := st.LoadTUIState()
	if err != nil {
		return model.FilterAll
	}
	f, err := model.ParseFilter(s.Filter)
	if err != nil {
		return model.FilterAll
	}
	return f
}
