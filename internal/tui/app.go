package tui

import (
	"context"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/todo"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	opTimeout     = 10 * time.Second
	toastDuration = 3 * time.Second
)

type appModel struct {
	ctx  context.Context
	svc  *todo.Service
	keys keyMap

	view   view
	user   *model.User
	width  int
	height int

	nameInput     textinput.Model
	textInput     textinput.Model
	deadlineInput textinput.Model
	focus         focusArea
	submitting    bool
	signingIn     bool

	tasks      *todo.Collection
	filter     model.Filter
	cursor     int
	selectedID string

	// gen increases on every sign-in/sign-out; sub is the live change subscription.
	gen int
	sub backend.Subscription

	spinner  spinner.Model
	toast    *todo.Notice
	toastSeq int
	showHelp bool
}

func newAppModel(ctx context.Context, svc *todo.Service) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	m := appModel{
		ctx:    ctx,
		svc:    svc,
		keys:   defaultKeyMap(),
		view:   viewBoot,
		tasks:  todo.NewCollection(),
		filter: model.FilterAll,
		focus:  focusText,
	}

	m.nameInput = textinput.New()
	m.nameInput.Placeholder = "Your name"
	m.nameInput.CharLimit = 64
	m.nameInput.Width = 32

	m.textInput = textinput.New()
	m.textInput.Placeholder = todo.TextPlaceholder
	m.textInput.CharLimit = model.MaxTaskTextLen
	m.textInput.Width = 48

	m.deadlineInput = textinput.New()
	m.deadlineInput.Placeholder = "Deadline (YYYY-MM-DD [HH:MM])"
	m.deadlineInput.CharLimit = 16
	m.deadlineInput.Width = 32

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = styleMuted()
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.checkAuthCmd(), m.spinner.Tick)
}

func (m appModel) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, opTimeout)
}

func (m appModel) checkAuthCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.opContext()
		defer cancel()
		u, err := m.svc.CurrentUser(ctx)
		return authCheckedMsg{user: u, err: err}
	}
}

func (m appModel) signInCmd(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.opContext()
		defer cancel()
		u, res := m.svc.SignIn(ctx, name)
		return signedInMsg{user: u, res: res}
	}
}

// startFetch marks a fetch in flight and returns the command performing it.
func (m *appModel) startFetch() tea.Cmd {
	m.tasks.BeginFetch()
	gen := m.gen
	svc := m.svc
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, opTimeout)
		defer cancel()
		tasks, err := svc.Fetch(ctx)
		return fetchDoneMsg{gen: gen, tasks: tasks, err: err}
	}
}

func (m appModel) subscribeCmd() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		sub, err := m.svc.Watch(m.ctx)
		return subscribedMsg{gen: gen, sub: sub, err: err}
	}
}

// waitForChange blocks until the subscription delivers an event or is closed.
func waitForChange(gen int, sub backend.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return subClosedMsg{gen: gen}
		}
		return changeMsg{gen: gen, ev: ev}
	}
}

func (m appModel) createCmd(d todo.Draft) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		ctx, cancel := m.opContext()
		defer cancel()
		return createDoneMsg{gen: gen, res: m.svc.Create(ctx, d)}
	}
}

func (m appModel) toggleCmd(t model.Task) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		ctx, cancel := m.opContext()
		defer cancel()
		return rowDoneMsg{gen: gen, id: t.ID, res: m.svc.Toggle(ctx, t)}
	}
}

func (m appModel) deleteCmd(id string) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		ctx, cancel := m.opContext()
		defer cancel()
		return rowDoneMsg{gen: gen, id: id, res: m.svc.Delete(ctx, id)}
	}
}

func (m appModel) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.opContext()
		defer cancel()
		return logoutDoneMsg{res: m.svc.Logout(ctx)}
	}
}

// showToast displays n and schedules its removal.
func (m *appModel) showToast(n *todo.Notice) tea.Cmd {
	if n == nil {
		return nil
	}
	m.toast = n
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

// closeSubscription ends the live subscription, if any.
func (m *appModel) closeSubscription() {
	if m.sub != nil {
		_ = m.sub.Close()
		m.sub = nil
	}
}

// enterTasks switches to the task list for u: one fetch plus one subscription.
func (m *appModel) enterTasks(u *model.User) tea.Cmd {
	m.closeSubscription()
	m.gen++
	m.user = u
	m.view = viewTasks
	m.tasks.Reset()
	m.cursor = 0
	m.selectedID = ""
	m.nameInput.Blur()
	m.nameInput.Reset()
	m.setFocus(focusText)
	return tea.Batch(m.startFetch(), m.subscribeCmd(), textinput.Blink)
}

// enterAuth switches to the sign-in screen, dropping everything tied to the old session.
func (m *appModel) enterAuth() tea.Cmd {
	m.closeSubscription()
	m.gen++
	m.user = nil
	m.view = viewAuth
	m.tasks.Reset()
	m.submitting = false
	m.textInput.Reset()
	m.deadlineInput.Reset()
	m.textInput.Blur()
	m.deadlineInput.Blur()
	m.cursor = 0
	m.selectedID = ""
	m.showHelp = false
	return m.nameInput.Focus()
}

func (m *appModel) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.textInput.Blur()
	m.deadlineInput.Blur()
	if m.submitting {
		return nil
	}
	switch f {
	case focusText:
		return m.textInput.Focus()
	case focusDeadline:
		return m.deadlineInput.Focus()
	}
	return nil
}

func (m appModel) visible() []model.Task {
	return m.tasks.Visible(m.filter)
}

func (m appModel) selectedTask() (model.Task, bool) {
	vis := m.visible()
	if m.cursor < 0 || m.cursor >= len(vis) {
		return model.Task{}, false
	}
	return vis[m.cursor], true
}

// syncCursor keeps the cursor on the previously selected task when it is still visible.
func (m *appModel) syncCursor() {
	vis := m.visible()
	if m.selectedID != "" {
		for i, t := range vis {
			if t.ID == m.selectedID {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(vis) {
		m.cursor = len(vis) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < len(vis) {
		m.selectedID = vis[m.cursor].ID
	} else {
		m.selectedID = ""
	}
}

func (m *appModel) moveCursor(delta int) {
	vis := m.visible()
	if len(vis) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(vis) {
		m.cursor = len(vis) - 1
	}
	m.selectedID = vis[m.cursor].ID
}
