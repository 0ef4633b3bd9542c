package tui

import (
	"strings"
	"time"

	"getitdone/internal/docs"
	"getitdone/internal/model"
	"getitdone/internal/todo"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const defaultWidth = 80

func (m appModel) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m appModel) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	switch m.view {
	case viewAuth:
		return m.viewAuth()
	case viewTasks:
		return m.viewTasks()
	default:
		return "\n  " + m.spinner.View() + " " + styleMuted().Render("Starting…")
	}
}

func (m appModel) viewHelp() string {
	body, _ := docs.Get("keys")
	out := renderMarkdown(body, m.contentWidth()-4)
	return out + "\n\n" + styleMuted().Render("  esc/? to close")
}

func (m appModel) viewAuth() string {
	var b strings.Builder
	b.WriteString("\n  " + styleTitle().Render(todo.AppTitle) + "\n\n")
	b.WriteString("  " + styleChrome().Render("Sign in to see your tasks") + "\n\n")
	b.WriteString("  " + styleInput(true).Render(m.nameInput.View()) + "\n\n")
	if m.signingIn {
		b.WriteString("  " + m.spinner.View() + " " + styleMuted().Render("Signing in…") + "\n")
	} else {
		b.WriteString("  " + styleMuted().Render("enter sign in · esc quit") + "\n")
	}
	if t := m.viewToast(); t != "" {
		b.WriteString("\n  " + t + "\n")
	}
	return b.String()
}

func (m appModel) viewTasks() string {
	w := m.contentWidth()
	rule := styleChrome().Render(strings.Repeat(glyphHRule(), max(w-2, 10)))

	var b strings.Builder
	b.WriteString(m.viewHeader(w) + "\n")
	b.WriteString(" " + rule + "\n")
	b.WriteString(m.viewForm() + "\n")
	b.WriteString(" " + m.viewFilterTabs() + "\n")
	b.WriteString(" " + rule + "\n")
	b.WriteString(m.viewList(w, m.listHeight()))
	b.WriteString(" " + rule + "\n")
	if t := m.viewToast(); t != "" {
		b.WriteString(" " + t + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(" " + m.viewHints())
	return b.String()
}

func (m appModel) viewHeader(w int) string {
	left := " " + styleTitle().Render(todo.AppTitle)
	right := ""
	if m.user != nil {
		right = styleMuted().Render(m.user.Name+" · L sign out") + " "
	}
	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m appModel) viewForm() string {
	var b strings.Builder
	b.WriteString(" " + styleInput(m.focus == focusText && !m.submitting).Render(m.textInput.View()) + "\n")
	line := " " + styleInput(m.focus == focusDeadline && !m.submitting).Render(m.deadlineInput.View())
	if m.submitting {
		line += "  " + m.spinner.View() + " " + styleMuted().Render("Adding…")
	} else {
		line += "  " + styleMuted().Render("enter to add")
	}
	b.WriteString(line)
	return b.String()
}

func (m appModel) viewFilterTabs() string {
	parts := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		if f == m.filter {
			parts = append(parts, styleActiveTab().Render(f.Label()))
		} else {
			parts = append(parts, styleInactiveTab().Render(f.Label()))
		}
	}
	return strings.Join(parts, " ")
}

// listHeight is the number of rows available to the list.
func (m appModel) listHeight() int {
	if m.height <= 0 {
		return 12
	}
	// header, 3 rules, 2 form lines, tabs, toast, hints
	h := m.height - 9
	if h < 3 {
		h = 3
	}
	return h
}

func (m appModel) viewList(w, height int) string {
	if !m.tasks.Settled() {
		return "\n  " + m.spinner.View() + " " + styleMuted().Render(todo.LoadingText) + "\n\n"
	}
	vis := m.visible()
	if len(vis) == 0 {
		return "\n  " + styleTitle().Render(todo.EmptyTitle) + "\n  " + styleMuted().Render(todo.EmptyHint) + "\n\n"
	}

	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(len(vis), start+height)

	now := time.Now()
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(vis[i], i == m.cursor && m.focus == focusList, w, now) + "\n")
	}
	if end < len(vis) {
		b.WriteString(styleMuted().Render("   "+glyphBullet()+" more below") + "\n")
	}
	return b.String()
}

// renderRow draws one task. The delete affordance only shows on the selected row.
func (m appModel) renderRow(t model.Task, selected bool, w int, now time.Time) string {
	cursor := " "
	if selected {
		cursor = glyphCursor()
	}

	var right []string
	if d := model.FormatDeadline(t.Deadline); d != "" {
		label := "due " + d
		if t.Overdue(now) {
			right = append(right, styleOverdue().Render(label+" (overdue)"))
		} else {
			right = append(right, styleMuted().Render(label))
		}
	}
	if m.tasks.Busy(t.ID) {
		right = append(right, m.spinner.View())
	} else if selected {
		right = append(right, styleMuted().Render(glyphDelete()+" d"))
	}
	suffix := strings.Join(right, "  ")

	prefix := " " + cursor + " " + glyphCheckbox(t.Complete) + " "
	avail := w - lipgloss.Width(prefix) - lipgloss.Width(suffix) - 3
	if avail < 8 {
		avail = 8
	}
	text := ansi.Truncate(t.Text, avail, "…")
	if t.Complete {
		text = styleCompleted().Render(text)
	}

	line := prefix + text
	if suffix != "" {
		gap := w - lipgloss.Width(line) - lipgloss.Width(suffix) - 1
		if gap < 2 {
			gap = 2
		}
		line += strings.Repeat(" ", gap) + suffix
	}
	if selected {
		return styleSelectedRow().Render(line)
	}
	return line
}

func (m appModel) viewToast() string {
	if m.toast == nil {
		return ""
	}
	return styleToast(m.toast.Kind == todo.NoticeSuccess).Render(m.toast.Text)
}

func (m appModel) viewHints() string {
	bindings := m.keys.formHints()
	if m.focus == focusList {
		bindings = m.keys.listHints()
	}
	return styleMuted().Render(joinHints(bindings))
}

func joinHints(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
