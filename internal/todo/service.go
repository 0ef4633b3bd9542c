// Package todo holds the task-list behavior shared by every front end: validation,
// the single backend request per user action, the resulting notice and whether the
// list must be re-fetched.
package todo

import (
	"context"
	"errors"
	"strings"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"

	"github.com/sirupsen/logrus"
)

// Result tells a front end what to do after an action settles.
type Result struct {
	Notice *Notice
	// Refresh asks for exactly one re-fetch of the collection.
	Refresh bool
	// ClearForm empties the creation form.
	ClearForm bool
	// Reauth sends the user to the sign-in entry point.
	Reauth bool
	Err    error
}

// Draft is the content of the creation form.
type Draft struct {
	Text     string
	Deadline string
}

type Service struct {
	client backend.Client
	logger logrus.FieldLogger
	loc    *time.Location
}

func NewService(client backend.Client, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{client: client, logger: logger, loc: time.Local}
}

// WithLocation returns a copy of s that interprets deadlines in loc.
func (s *Service) WithLocation(loc *time.Location) *Service {
	cp := *s
	if loc != nil {
		cp.loc = loc
	}
	return &cp
}

func (s *Service) CurrentUser(ctx context.Context) (*model.User, error) {
	u, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.WithError(err).Error("current user")
	}
	return u, err
}

// SignIn is the re-authentication entry point.
func (s *Service) SignIn(ctx context.Context, name string) (*model.User, Result) {
	if strings.TrimSpace(name) == "" {
		return nil, Result{Notice: failure(MsgEnterName)}
	}
	u, err := s.client.SignIn(ctx, name)
	if err != nil {
		s.logger.WithError(err).Error("sign in")
		return nil, Result{Notice: failure(MsgSignInFailed), Err: err}
	}
	return u, Result{Refresh: true}
}

// Fetch loads the signed-in user's tasks, newest first.
func (s *Service) Fetch(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		s.logger.WithError(err).Error("fetch todos")
		return nil, err
	}
	return tasks, nil
}

// ValidateDraft checks the form without contacting the backend.
func (s *Service) ValidateDraft(d Draft) (string, *time.Time, *Notice) {
	text, err := model.NormalizeTaskText(d.Text)
	switch {
	case errors.Is(err, model.ErrTaskTextEmpty):
		return "", nil, failure(MsgEnterTask)
	case errors.Is(err, model.ErrTaskTextTooLong):
		return "", nil, failure(MsgTaskTooLong)
	case err != nil:
		return "", nil, failure(MsgEnterTask)
	}
	deadline, err := model.ParseDeadline(d.Deadline, s.loc)
	if err != nil {
		return "", nil, failure(MsgInvalidDeadline)
	}
	return text, deadline, nil
}

// Create validates the draft, resolves the current user and sends one insert.
func (s *Service) Create(ctx context.Context, d Draft) Result {
	text, deadline, notice := s.ValidateDraft(d)
	if notice != nil {
		return Result{Notice: notice}
	}

	u, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.WithError(err).Error("add todo: current user")
		return Result{Notice: failure(MsgAddFailed), Err: err}
	}
	if u == nil {
		return Result{Notice: failure(MsgLoginRequired)}
	}

	if err := s.client.InsertTask(ctx, backend.NewTask{Text: text, OwnerID: u.ID, Deadline: deadline}); err != nil {
		s.logger.WithError(err).Error("add todo")
		return Result{Notice: failure(MsgAddFailed), Err: err}
	}
	return Result{Notice: success(MsgAdded), ClearForm: true, Refresh: true}
}

// Toggle flips the completion flag of t with a single update.
func (s *Service) Toggle(ctx context.Context, t model.Task) Result {
	if err := s.client.SetComplete(ctx, t.ID, !t.Complete); err != nil {
		s.logger.WithError(err).WithField("task", t.ID).Error("update todo")
		return Result{Notice: failure(MsgUpdateFailed), Err: err}
	}
	return Result{Refresh: true}
}

func (s *Service) Delete(ctx context.Context, id string) Result {
	if err := s.client.DeleteTask(ctx, id); err != nil {
		s.logger.WithError(err).WithField("task", id).Error("delete todo")
		return Result{Notice: failure(MsgDeleteFailed), Err: err}
	}
	return Result{Notice: success(MsgDeleted), Refresh: true}
}

// Logout ends the local session. The user is sent to sign in again even when it fails.
func (s *Service) Logout(ctx context.Context) Result {
	if err := s.client.SignOut(ctx, backend.SignOutLocal); err != nil {
		s.logger.WithError(err).Error("sign out")
		return Result{Reauth: true, Err: err}
	}
	return Result{Reauth: true}
}

// Watch subscribes to task changes.
func (s *Service) Watch(ctx context.Context) (backend.Subscription, error) {
	sub, err := s.client.Subscribe(ctx, model.TasksCollection)
	if err != nil {
		s.logger.WithError(err).Error("subscribe todos")
	}
	return sub, err
}
