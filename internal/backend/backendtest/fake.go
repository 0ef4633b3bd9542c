// Package backendtest provides an in-memory backend.Client for tests.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/notify"
)

// Fake is a backend.Client that keeps tasks in memory and counts calls.
// Setting one of the *Err fields makes the matching operation fail.
type Fake struct {
	mu sync.Mutex

	User  *model.User
	tasks []model.Task
	hub   *notify.Hub
	next  int
	now   time.Time

	CurrentUserErr error
	SignInErr      error
	SignOutErr     error
	ListErr        error
	InsertErr      error
	UpdateErr      error
	DeleteErr      error
	SubscribeErr   error

	Calls map[string]int
	// Inserted records every successful insert request.
	Inserted []backend.NewTask
	// SignOutScopes records the scope of every sign-out request.
	SignOutScopes []backend.SignOutScope
}

var _ backend.Client = (*Fake)(nil)

func New(user *model.User, tasks ...model.Task) *Fake {
	return &Fake{
		User:  user,
		tasks: append([]model.Task(nil), tasks...),
		hub:   notify.NewHub(),
		now:   time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Calls: map[string]int{},
	}
}

func (f *Fake) count(op string) {
	f.Calls[op]++
}

// CallCount returns how many times op was called.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// Tasks returns a copy of the stored tasks, newest first.
func (f *Fake) Tasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.tasks...)
}

// Emit broadcasts a change event to subscribers.
func (f *Fake) Emit(ev model.ChangeEvent) {
	if ev.Collection == "" {
		ev.Collection = model.TasksCollection
	}
	f.hub.Broadcast(ev)
}

// Subscribers returns the number of open task subscriptions.
func (f *Fake) Subscribers() int { return f.hub.Subscribers(model.TasksCollection) }

func (f *Fake) CurrentUser(ctx context.Context) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("CurrentUser")
	if f.CurrentUserErr != nil {
		return nil, f.CurrentUserErr
	}
	if f.User == nil {
		return nil, nil
	}
	u := *f.User
	return &u, nil
}

func (f *Fake) SignIn(ctx context.Context, name string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("SignIn")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.User = &model.User{ID: "user-" + name, Name: name, CreatedAt: f.now}
	u := *f.User
	return &u, nil
}

func (f *Fake) SignOut(ctx context.Context, scope backend.SignOutScope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("SignOut")
	f.SignOutScopes = append(f.SignOutScopes, scope)
	f.User = nil
	return f.SignOutErr
}

func (f *Fake) ListTasks(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("ListTasks")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if f.User == nil {
		return nil, backend.ErrNoSession
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.OwnerID == f.User.ID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *Fake) InsertTask(ctx context.Context, nt backend.NewTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("InsertTask")
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.Inserted = append(f.Inserted, nt)
	f.next++
	f.now = f.now.Add(time.Minute)
	f.tasks = append(f.tasks, model.Task{
		ID:        fmt.Sprintf("task-%d", f.next),
		Text:      nt.Text,
		Deadline:  nt.Deadline,
		OwnerID:   nt.OwnerID,
		CreatedAt: f.now,
	})
	sort.SliceStable(f.tasks, func(i, j int) bool { return f.tasks[i].CreatedAt.After(f.tasks[j].CreatedAt) })
	return nil
}

func (f *Fake) SetComplete(ctx context.Context, id string, complete bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("SetComplete")
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Complete = complete
		}
	}
	return nil
}

func (f *Fake) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("DeleteTask")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	out := f.tasks[:0]
	for _, t := range f.tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	f.tasks = out
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, collection string) (backend.Subscription, error) {
	f.mu.Lock()
	f.count("Subscribe")
	err := f.SubscribeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.hub.Subscribe(collection), nil
}
