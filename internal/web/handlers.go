package web

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"getitdone/internal/model"
	"getitdone/internal/todo"

	"github.com/starfederation/datastar-go/datastar"
)

type filterVM struct {
	Value string
	Label string
}

type rowVM struct {
	ID       string
	// Busy names the row's in-flight signal; it is derived from ID so it follows
	// the task when the list is re-rendered in a different order.
	Busy     string
	Text     string
	Complete bool
	Deadline string
	Overdue  bool
}

type listVM struct {
	Settled bool
	Rows    []rowVM
	// EmptyShow is the client-side expression telling whether the filtered list is empty.
	EmptyShow  string
	EmptyTitle string
	EmptyHint  string
	Loading    string
}

type pageVM struct {
	Title       string
	DatastarURL string
	User        *model.User
	Placeholder string
	Filters     []filterVM
	List        listVM
}

type authVM struct {
	Title       string
	DatastarURL string
	Name        string
	Error       string
}

type toastVM struct {
	Kind      string
	Text      string
	TimeoutMS int64
}

func filterVMs() []filterVM {
	out := make([]filterVM, 0, len(model.Filters))
	for _, f := range model.Filters {
		out = append(out, filterVM{Value: string(f), Label: f.Label()})
	}
	return out
}

func newListVM(c *todo.Collection, now time.Time, loc *time.Location) listVM {
	if loc == nil {
		loc = time.Local
	}
	vm := listVM{
		Settled:    c.Settled(),
		EmptyTitle: todo.EmptyTitle,
		EmptyHint:  todo.EmptyHint,
		Loading:    todo.LoadingText,
	}
	var active, completed int
	for _, t := range c.Tasks() {
		if t.Complete {
			completed++
		} else {
			active++
		}
		if t.Deadline != nil {
			d := t.Deadline.In(loc)
			t.Deadline = &d
		}
		vm.Rows = append(vm.Rows, rowVM{
			ID:       t.ID,
			Busy:     busySignal(t.ID),
			Text:     t.Text,
			Complete: t.Complete,
			Deadline: model.FormatDeadline(t.Deadline),
			Overdue:  t.Overdue(now),
		})
	}
	vm.EmptyShow = fmt.Sprintf(
		"($filter === 'all' && %t) || ($filter === 'active' && %t) || ($filter === 'completed' && %t)",
		active+completed == 0, active == 0, completed == 0,
	)
	return vm
}

// busySignal maps a task id to a Datastar signal name.
func busySignal(id string) string {
	return "busy" + hex.EncodeToString([]byte(id))
}

func opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), opTimeout)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opContext(r)
	defer cancel()

	svc := s.service(w, r)
	u, err := svc.CurrentUser(ctx)
	if err != nil || u == nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}
	s.writeHTMLTemplate(w, http.StatusOK, "index.html", pageVM{
		Title:       todo.AppTitle,
		DatastarURL: DatastarScriptURL,
		User:        u,
		Placeholder: todo.TextPlaceholder,
		Filters:     filterVMs(),
		// The first fetch happens when the event stream opens.
		List: newListVM(todo.NewCollection(), time.Now(), s.cfg.Location),
	})
}

func (s *Server) handleAuthGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opContext(r)
	defer cancel()

	if u, err := s.service(w, r).CurrentUser(ctx); err == nil && u != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.writeHTMLTemplate(w, http.StatusOK, "auth.html", authVM{Title: todo.AppTitle, DatastarURL: DatastarScriptURL})
}

func (s *Server) handleAuthPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opContext(r)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostForm.Get("name"))
	u, res := s.service(w, r).SignIn(ctx, name)
	if u == nil {
		msg := todo.MsgSignInFailed
		if res.Notice != nil {
			msg = res.Notice.Text
		}
		s.writeHTMLTemplate(w, http.StatusUnprocessableEntity, "auth.html", authVM{
			Title:       todo.AppTitle,
			DatastarURL: DatastarScriptURL,
			Name:        name,
			Error:       msg,
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opContext(r)
	defer cancel()

	// Logout always ends at the sign-in page, even when revoking fails.
	_ = s.service(w, r).Logout(ctx)
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

type draftSignals struct {
	Text     string `json:"text"`
	Deadline string `json:"deadline"`
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var d draftSignals
	if err := datastar.ReadSignals(r, &d); err != nil {
		http.Error(w, "bad signals", http.StatusBadRequest)
		return
	}

	ctx, cancel := opContext(r)
	defer cancel()
	svc := s.service(w, r)
	res := svc.Create(ctx, todo.Draft{Text: d.Text, Deadline: d.Deadline})

	sse := datastar.NewSSE(w, r)
	if res.ClearForm {
		_ = sse.MarshalAndPatchSignals(map[string]any{"text": "", "deadline": ""})
	}
	s.finishAction(ctx, sse, svc, res)
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	done, err := strconv.ParseBool(r.URL.Query().Get("done"))
	if id == "" || err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := opContext(r)
	defer cancel()
	svc := s.service(w, r)
	res := svc.Toggle(ctx, model.Task{ID: id, Complete: done})
	s.finishAction(ctx, datastar.NewSSE(w, r), svc, res)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := opContext(r)
	defer cancel()
	svc := s.service(w, r)
	res := svc.Delete(ctx, id)
	s.finishAction(ctx, datastar.NewSSE(w, r), svc, res)
}

// finishAction shows the notice and performs the single re-fetch the result asks for.
func (s *Server) finishAction(ctx context.Context, sse *datastar.ServerSentEventGenerator, svc *todo.Service, res todo.Result) {
	if res.Reauth {
		_ = sse.ExecuteScript(`window.location.assign("/auth")`)
		return
	}
	if res.Notice != nil {
		s.patchToast(sse, *res.Notice)
	}
	if !res.Refresh {
		return
	}
	c := todo.NewCollection()
	c.BeginFetch()
	tasks, err := svc.Fetch(ctx)
	if n := c.ApplyFetch(tasks, err); n != nil {
		s.patchToast(sse, *n)
		return
	}
	s.patchList(sse, c)
}

func (s *Server) patchToast(sse *datastar.ServerSentEventGenerator, n todo.Notice) {
	html, err := s.renderTemplate("toast", toastVM{
		Kind:      string(n.Kind),
		Text:      n.Text,
		TimeoutMS: toastTimeout.Milliseconds(),
	})
	if err != nil {
		s.logger.WithError(err).Error("render toast")
		return
	}
	_ = sse.PatchElements(html, datastar.WithSelector("#toasts"), datastar.WithMode(datastar.ElementPatchModeAppend))
}

func (s *Server) patchList(sse *datastar.ServerSentEventGenerator, c *todo.Collection) {
	html, err := s.renderTemplate("todo-list", newListVM(c, time.Now(), s.cfg.Location))
	if err != nil {
		s.logger.WithError(err).Error("render list")
		return
	}
	_ = sse.PatchElements(html, datastar.WithSelector("#todo-list"), datastar.WithMode(datastar.ElementPatchModeOuter))
}
