package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/backend/backendtest"
	"getitdone/internal/model"
	"getitdone/internal/store"
	"getitdone/internal/todo"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
)

var alice = &model.User{ID: "u-alice", Name: "alice"}

// harness drives an appModel by running commands and feeding their messages back.
// Commands that do not finish quickly (ticks, blocking subscription reads) keep
// running and deliver to late.
type harness struct {
	t    *testing.T
	m    appModel
	f    *backendtest.Fake
	late chan tea.Msg
}

func newHarness(t *testing.T, f *backendtest.Fake) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	svc := todo.NewService(f, logger).WithLocation(time.UTC)
	h := &harness{t: t, m: newAppModel(context.Background(), svc), f: f, late: make(chan tea.Msg, 64)}
	h.m.width, h.m.height = 80, 24
	t.Cleanup(func() { h.m.closeSubscription() })
	return h
}

func (h *harness) run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, h.run(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		go func() {
			if msg := <-ch; msg != nil {
				h.late <- msg
			}
		}()
		return nil
	}
}

func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case authCheckedMsg, signedInMsg, fetchDoneMsg, subscribedMsg, changeMsg,
		subClosedMsg, createDoneMsg, rowDoneMsg, logoutDoneMsg:
		return true
	}
	return false
}

// pump runs cmd to quiescence and returns the non-app messages it produced.
func (h *harness) pump(cmd tea.Cmd) []tea.Msg {
	h.t.Helper()
	var other []tea.Msg
	queue := h.run(cmd)
	for i := 0; len(queue) > 0; i++ {
		if i > 100 {
			h.t.Fatalf("update loop did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		if !isAppMsg(msg) {
			other = append(other, msg)
			continue
		}
		next, c := h.m.Update(msg)
		h.m = next.(appModel)
		queue = append(queue, h.run(c)...)
	}
	return other
}

func (h *harness) send(msg tea.Msg) []tea.Msg {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(appModel)
	return h.pump(cmd)
}

func (h *harness) key(k string) []tea.Msg {
	h.t.Helper()
	switch k {
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "tab":
		return h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "space":
		return h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// waitLate returns the first late message of type T.
func waitLate[T tea.Msg](t *testing.T, h *harness) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-h.late:
			if v, ok := msg.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func signedIn(t *testing.T, tasks ...model.Task) *harness {
	t.Helper()
	h := newHarness(t, backendtest.New(alice, tasks...))
	h.pump(h.m.Init())
	if h.m.view != viewTasks {
		t.Fatalf("expected task view, got %v", h.m.view)
	}
	return h
}

func task(id, text string, complete bool, minute int) model.Task {
	return model.Task{
		ID:        id,
		Text:      text,
		Complete:  complete,
		OwnerID:   alice.ID,
		CreatedAt: time.Date(2025, 1, 1, 8, minute, 0, 0, time.UTC),
	}
}

func hasQuit(msgs []tea.Msg) bool {
	for _, m := range msgs {
		if _, ok := m.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func TestBoot_NoSessionShowsSignIn(t *testing.T) {
	h := newHarness(t, backendtest.New(nil))
	h.pump(h.m.Init())

	if h.m.view != viewAuth {
		t.Fatalf("expected sign-in view, got %v", h.m.view)
	}
	if n := h.f.CallCount("ListTasks"); n != 0 {
		t.Fatalf("expected no fetch before sign-in, got %d", n)
	}
	if !strings.Contains(h.m.View(), "Sign in") {
		t.Fatalf("sign-in view missing prompt:\n%s", h.m.View())
	}
}

func TestSignIn_EntersTasksWithOneFetchAndSubscription(t *testing.T) {
	h := newHarness(t, backendtest.New(nil))
	h.pump(h.m.Init())

	h.key("enter")
	if h.m.toast == nil || h.m.toast.Text != todo.MsgEnterName {
		t.Fatalf("expected name prompt toast, got %+v", h.m.toast)
	}

	h.typeText("alice")
	h.key("enter")

	if h.m.view != viewTasks || h.m.user == nil || h.m.user.Name != "alice" {
		t.Fatalf("expected alice's task view, got view=%v user=%+v", h.m.view, h.m.user)
	}
	if n := h.f.CallCount("ListTasks"); n != 1 {
		t.Fatalf("expected one fetch, got %d", n)
	}
	if n := h.f.Subscribers(); n != 1 {
		t.Fatalf("expected one subscription, got %d", n)
	}
}

func TestView_LoadingThenEmpty(t *testing.T) {
	h := newHarness(t, backendtest.New(alice))
	h.m.enterTasks(alice)

	if out := h.m.View(); !strings.Contains(out, todo.LoadingText) {
		t.Fatalf("expected loading text before the first fetch settles:\n%s", out)
	}

	h.send(fetchDoneMsg{gen: h.m.gen})
	out := h.m.View()
	if strings.Contains(out, todo.LoadingText) {
		t.Fatalf("loading text should be gone:\n%s", out)
	}
	if !strings.Contains(out, todo.EmptyHint) {
		t.Fatalf("expected empty hint:\n%s", out)
	}
}

func TestFilter_IsLocalOnly(t *testing.T) {
	h := signedIn(t,
		task("t1", "buy milk", false, 1),
		task("t2", "walk dog", true, 2),
	)
	h.key("esc")
	if h.m.focus != focusList {
		t.Fatalf("expected list focus")
	}

	h.key("2")
	if vis := h.m.visible(); len(vis) != 1 || vis[0].ID != "t1" {
		t.Fatalf("active filter: got %+v", vis)
	}
	h.key("3")
	if vis := h.m.visible(); len(vis) != 1 || vis[0].ID != "t2" {
		t.Fatalf("completed filter: got %+v", vis)
	}
	h.key("f")
	if h.m.filter != model.FilterAll || len(h.m.visible()) != 2 {
		t.Fatalf("filter cycle: got %v", h.m.filter)
	}
	if n := h.f.CallCount("ListTasks"); n != 1 {
		t.Fatalf("filter changes must not fetch, got %d fetches", n)
	}
}

func TestChangeNotification_RefetchesOnce(t *testing.T) {
	h := signedIn(t)
	if n := h.f.Subscribers(); n != 1 {
		t.Fatalf("expected one subscription, got %d", n)
	}

	h.f.Emit(model.ChangeEvent{Type: model.ChangeInsert, EntityID: "x"})
	msg := waitLate[changeMsg](t, h)
	h.send(msg)

	if n := h.f.CallCount("ListTasks"); n != 2 {
		t.Fatalf("expected exactly one re-fetch, got %d fetches", n)
	}
}

func TestCreate_ClearsFormAndRefetches(t *testing.T) {
	h := signedIn(t)

	h.typeText("buy milk")
	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	h.m = next.(appModel)
	if !h.m.submitting {
		t.Fatalf("expected submitting state")
	}
	// Input is ignored while the submission is in flight.
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}})
	if got := h.m.textInput.Value(); got != "buy milk" {
		t.Fatalf("text changed during submission: %q", got)
	}
	h.pump(cmd)

	if h.m.submitting {
		t.Fatalf("expected submission to settle")
	}
	if len(h.f.Inserted) != 1 || h.f.Inserted[0].Text != "buy milk" || h.f.Inserted[0].OwnerID != alice.ID {
		t.Fatalf("unexpected inserts %+v", h.f.Inserted)
	}
	if h.m.textInput.Value() != "" || h.m.deadlineInput.Value() != "" {
		t.Fatalf("expected form cleared")
	}
	if h.m.toast == nil || h.m.toast.Text != todo.MsgAdded {
		t.Fatalf("expected success toast, got %+v", h.m.toast)
	}
	if tasks := h.m.tasks.Tasks(); len(tasks) != 1 || tasks[0].Text != "buy milk" {
		t.Fatalf("expected re-fetched list with the new task, got %+v", tasks)
	}
}

func TestCreate_InvalidDraftKeepsForm(t *testing.T) {
	h := signedIn(t)

	h.typeText("call mom")
	h.key("tab")
	if h.m.focus != focusDeadline {
		t.Fatalf("expected deadline focus")
	}
	h.typeText("someday")
	h.key("enter")

	if n := h.f.CallCount("InsertTask"); n != 0 {
		t.Fatalf("expected no insert, got %d", n)
	}
	if h.m.toast == nil || h.m.toast.Text != todo.MsgInvalidDeadline {
		t.Fatalf("expected invalid deadline toast, got %+v", h.m.toast)
	}
	if h.m.textInput.Value() != "call mom" {
		t.Fatalf("form should be kept, got %q", h.m.textInput.Value())
	}
}

func TestToggle_OneUpdateAndBusyRowIgnoresRepeats(t *testing.T) {
	h := signedIn(t, task("t1", "buy milk", false, 1))
	h.key("esc")

	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	h.m = next.(appModel)
	if cmd == nil || !h.m.tasks.Busy("t1") {
		t.Fatalf("expected toggle to start")
	}
	next, again := h.m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	h.m = next.(appModel)
	if again != nil {
		t.Fatalf("busy row must ignore a second toggle")
	}

	h.pump(cmd)
	if n := h.f.CallCount("SetComplete"); n != 1 {
		t.Fatalf("expected one update, got %d", n)
	}
	if h.m.tasks.Busy("t1") {
		t.Fatalf("busy flag should clear")
	}
	if got, ok := h.m.tasks.Find("t1"); !ok || !got.Complete {
		t.Fatalf("expected task completed after re-fetch, got %+v", got)
	}
}

func TestToggle_FailureShowsToast(t *testing.T) {
	h := signedIn(t, task("t1", "buy milk", false, 1))
	h.f.UpdateErr = backend.ErrNoSession
	h.key("esc")
	h.key("space")

	if h.m.toast == nil || h.m.toast.Text != todo.MsgUpdateFailed {
		t.Fatalf("expected update failure toast, got %+v", h.m.toast)
	}
	if n := h.f.CallCount("ListTasks"); n != 1 {
		t.Fatalf("failed update must not re-fetch, got %d", n)
	}
}

func TestDelete_RemovesTask(t *testing.T) {
	h := signedIn(t, task("t1", "buy milk", false, 1), task("t2", "walk dog", false, 2))
	h.key("esc")
	h.key("j")
	h.key("d")

	if n := h.f.CallCount("DeleteTask"); n != 1 {
		t.Fatalf("expected one delete, got %d", n)
	}
	if h.m.toast == nil || h.m.toast.Text != todo.MsgDeleted {
		t.Fatalf("expected deleted toast, got %+v", h.m.toast)
	}
	left := h.m.tasks.Tasks()
	if len(left) != 1 {
		t.Fatalf("expected one task left, got %+v", left)
	}
}

func TestRow_DeleteHintOnlyOnSelected(t *testing.T) {
	setGlyphs(glyphSetASCII)
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })

	h := signedIn(t, task("t1", "buy milk", false, 1), task("t2", "walk dog", false, 2))
	h.key("esc")

	now := time.Now()
	vis := h.m.visible()
	if !strings.Contains(h.m.renderRow(vis[0], true, 80, now), "x d") {
		t.Fatalf("selected row should show the delete hint")
	}
	if strings.Contains(h.m.renderRow(vis[1], false, 80, now), "x d") {
		t.Fatalf("unselected row must not show the delete hint")
	}
}

func TestRow_OverdueDeadline(t *testing.T) {
	past := time.Date(2020, 3, 1, 0, 0, 0, 0, time.Local)
	tk := task("t1", "file taxes", false, 1)
	tk.Deadline = &past

	h := signedIn(t, tk)
	row := h.m.renderRow(tk, false, 100, time.Now())
	if !strings.Contains(row, "overdue") || !strings.Contains(row, "Mar 1, 2020") {
		t.Fatalf("expected overdue deadline in row: %q", row)
	}
}

func TestLogout_ReturnsToSignInAndUnsubscribes(t *testing.T) {
	h := signedIn(t, task("t1", "buy milk", false, 1))
	h.key("esc")
	h.key("L")

	if h.m.view != viewAuth {
		t.Fatalf("expected sign-in view, got %v", h.m.view)
	}
	if h.m.sub != nil || h.f.Subscribers() != 0 {
		t.Fatalf("expected subscription closed")
	}
	if h.m.tasks.Len() != 0 {
		t.Fatalf("expected tasks cleared")
	}
	if len(h.f.SignOutScopes) != 1 || h.f.SignOutScopes[0] != backend.SignOutLocal {
		t.Fatalf("expected one local sign-out, got %v", h.f.SignOutScopes)
	}
}

func TestStaleResultsDroppedAfterLogout(t *testing.T) {
	h := signedIn(t, task("t1", "buy milk", false, 1))
	oldGen := h.m.gen
	h.key("esc")
	h.key("L")

	h.send(fetchDoneMsg{gen: oldGen, tasks: []model.Task{task("t9", "stale", false, 9)}})
	if h.m.tasks.Len() != 0 {
		t.Fatalf("stale fetch must be dropped")
	}
}

func TestToast_OnlyLatestExpires(t *testing.T) {
	h := signedIn(t)
	h.m.showToast(&todo.Notice{Kind: todo.NoticeSuccess, Text: "first"})
	first := h.m.toastSeq
	h.m.showToast(&todo.Notice{Kind: todo.NoticeError, Text: "second"})

	h.send(toastExpiredMsg{seq: first})
	if h.m.toast == nil || h.m.toast.Text != "second" {
		t.Fatalf("older expiry must not hide the newer toast")
	}
	h.send(toastExpiredMsg{seq: h.m.toastSeq})
	if h.m.toast != nil {
		t.Fatalf("expected toast cleared")
	}
}

func TestQuit_ClosesSubscription(t *testing.T) {
	h := signedIn(t)
	h.key("esc")
	msgs := h.key("q")

	if !hasQuit(msgs) {
		t.Fatalf("expected quit")
	}
	if h.f.Subscribers() != 0 {
		t.Fatalf("expected subscription closed on quit")
	}
}

func TestHelp_Overlay(t *testing.T) {
	h := signedIn(t)
	h.key("esc")
	h.key("?")
	if !h.m.showHelp {
		t.Fatalf("expected help overlay")
	}
	h.key("esc")
	if h.m.showHelp {
		t.Fatalf("expected help closed")
	}
}

func TestRestoreFilter(t *testing.T) {
	st := store.Store{Dir: t.TempDir()}
	if got := restoreFilter(st); got != model.FilterAll {
		t.Fatalf("expected all without saved state, got %q", got)
	}
	if err := st.SaveTUIState(&store.TUIState{Filter: "active"}); err != nil {
		t.Fatal(err)
	}
	if got := restoreFilter(st); got != model.FilterActive {
		t.Fatalf("expected active, got %q", got)
	}
	if err := st.SaveTUIState(&store.TUIState{Filter: "bogus"}); err != nil {
		t.Fatal(err)
	}
	if got := restoreFilter(st); got != model.FilterAll {
		t.Fatalf("expected all for an unknown filter, got %q", got)
	}
}

func TestView_EmptyStateUnderEveryFilter(t *testing.T) {
	h := signedIn(t,
		task("t1", "buy milk", false, 1),
		task("t2", "walk dog", false, 2),
	)
	h.key("esc")

	if out := h.m.View(); strings.Contains(out, todo.EmptyTitle) {
		t.Fatalf("all filter with tasks must not show the empty state:\n%s", out)
	}

	h.key("3")
	out := h.m.View()
	if !strings.Contains(out, todo.EmptyTitle) || !strings.Contains(out, todo.EmptyHint) {
		t.Fatalf("completed filter over only active tasks must show the empty state:\n%s", out)
	}

	h.key("2")
	if out := h.m.View(); strings.Contains(out, todo.EmptyTitle) || !strings.Contains(out, "buy milk") {
		t.Fatalf("active filter must list the tasks:\n%s", out)
	}
}
