package tui

import (
	"getitdone/internal/model"
	"getitdone/internal/todo"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := msg.Width - 8
		if w < 20 {
			w = 20
		}
		m.textInput.Width = w
		m.deadlineInput.Width = min(w, 32)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case authCheckedMsg:
		if msg.err != nil || msg.user == nil {
			cmd := m.enterAuth()
			if msg.err != nil {
				return m, tea.Batch(cmd, m.showToast(&todo.Notice{Kind: todo.NoticeError, Text: todo.MsgSignInFailed}))
			}
			return m, cmd
		}
		return m, m.enterTasks(msg.user)

	case signedInMsg:
		m.signingIn = false
		toast := m.showToast(msg.res.Notice)
		if msg.user == nil {
			return m, toast
		}
		return m, tea.Batch(toast, m.enterTasks(msg.user))

	case fetchDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		notice := m.tasks.ApplyFetch(msg.tasks, msg.err)
		m.syncCursor()
		return m, m.showToast(notice)

	case subscribedMsg:
		if msg.err != nil {
			return m, nil
		}
		if msg.gen != m.gen || m.view != viewTasks {
			_ = msg.sub.Close()
			return m, nil
		}
		m.sub = msg.sub
		return m, waitForChange(msg.gen, msg.sub)

	case changeMsg:
		if msg.gen != m.gen || m.sub == nil {
			return m, nil
		}
		// One change, one full re-fetch.
		return m, tea.Batch(m.startFetch(), waitForChange(m.gen, m.sub))

	case subClosedMsg:
		return m, nil

	case createDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.submitting = false
		var cmds []tea.Cmd
		if msg.res.ClearForm {
			m.textInput.Reset()
			m.deadlineInput.Reset()
			cmds = append(cmds, m.setFocus(focusText))
		} else {
			cmds = append(cmds, m.setFocus(m.focus))
		}
		cmds = append(cmds, m.showToast(msg.res.Notice))
		if msg.res.Refresh {
			cmds = append(cmds, m.startFetch())
		}
		return m, tea.Batch(cmds...)

	case rowDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.tasks.ClearBusy(msg.id)
		cmds := []tea.Cmd{m.showToast(msg.res.Notice)}
		if msg.res.Refresh {
			cmds = append(cmds, m.startFetch())
		}
		return m, tea.Batch(cmds...)

	case logoutDoneMsg:
		return m, m.enterAuth()

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m.updateInputs(msg)
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.closeSubscription()
		return m, tea.Quit
	}
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.QuitList):
			m.showHelp = false
		}
		return m, nil
	}

	switch m.view {
	case viewAuth:
		return m.updateAuthKey(msg)
	case viewTasks:
		if m.focus == focusList {
			return m.updateListKey(msg)
		}
		return m.updateFormKey(msg)
	}
	return m, nil
}

func (m appModel) updateAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.closeSubscription()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		if m.signingIn {
			return m, nil
		}
		m.signingIn = true
		return m, m.signInCmd(m.nameInput.Value())
	}
	if m.signingIn {
		return m, nil
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m appModel) updateFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextFocus):
		return m, m.setFocus((m.focus + 1) % 3)
	case key.Matches(msg, m.keys.PrevFocus):
		return m, m.setFocus((m.focus + 2) % 3)
	case key.Matches(msg, m.keys.Back):
		return m, m.setFocus(focusList)
	}
	// The form is read-only while a submission is in flight.
	if m.submitting {
		return m, nil
	}
	if key.Matches(msg, m.keys.Submit) {
		m.submitting = true
		m.textInput.Blur()
		m.deadlineInput.Blur()
		return m, m.createCmd(todo.Draft{Text: m.textInput.Value(), Deadline: m.deadlineInput.Value()})
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusText:
		m.textInput, cmd = m.textInput.Update(msg)
	case focusDeadline:
		m.deadlineInput, cmd = m.deadlineInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) updateListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.QuitList):
		m.closeSubscription()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.NextFocus), key.Matches(msg, m.keys.Compose):
		return m, m.setFocus(focusText)
	case key.Matches(msg, m.keys.PrevFocus):
		return m, m.setFocus(focusDeadline)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.FilterAll):
		return m.setFilter(model.FilterAll), nil
	case key.Matches(msg, m.keys.FilterAct):
		return m.setFilter(model.FilterActive), nil
	case key.Matches(msg, m.keys.FilterCmp):
		return m.setFilter(model.FilterCompleted), nil
	case key.Matches(msg, m.keys.Filter):
		return m.setFilter(m.filter.Next()), nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.startFetch()
	case key.Matches(msg, m.keys.Logout):
		return m, m.logoutCmd()
	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.selectedTask()
		if !ok || !m.tasks.MarkBusy(t.ID) {
			return m, nil
		}
		return m, m.toggleCmd(t)
	case key.Matches(msg, m.keys.Delete):
		t, ok := m.selectedTask()
		if !ok || !m.tasks.MarkBusy(t.ID) {
			return m, nil
		}
		return m, m.deleteCmd(t.ID)
	}
	return m, nil
}

// setFilter changes the view filter locally; the backend is never consulted.
func (m appModel) setFilter(f model.Filter) appModel {
	m.filter = f
	m.syncCursor()
	return m
}

// updateInputs forwards non-key messages (cursor blink) to the focused input.
func (m appModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == viewAuth:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case m.view == viewTasks && m.focus == focusText:
		m.textInput, cmd = m.textInput.Update(msg)
	case m.view == viewTasks && m.focus == focusDeadline:
		m.deadlineInput, cmd = m.deadlineInput.Update(msg)
	}
	return m, cmd
}
