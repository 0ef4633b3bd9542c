// Package local implements backend.Client on top of the sqlite store, signed session
// tokens and the notify hub.
package local

import (
	"context"
	"errors"
	"strings"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/notify"
	"getitdone/internal/perm"
	"getitdone/internal/session"
	"getitdone/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TokenStore holds the session token of one client (config file, cookie, ...).
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// MemoryTokens is a TokenStore kept in memory.
type MemoryTokens struct {
	Value string
}

func (m *MemoryTokens) Token() (string, error)      { return m.Value, nil }
func (m *MemoryTokens) SetToken(token string) error { m.Value = token; return nil }

type Backend struct {
	db        *store.DB
	keys      *session.Keys
	hub       *notify.Hub
	publisher notify.Publisher
	logger    logrus.FieldLogger
}

type Options struct {
	DB   *store.DB
	Keys *session.Keys
	Hub  *notify.Hub
	// Publisher, when set, is told about every change written by this process.
	Publisher notify.Publisher
	Logger    logrus.FieldLogger
}

func New(opts Options) (*Backend, error) {
	if opts.DB == nil || opts.Keys == nil || opts.Hub == nil {
		return nil, errors.New("local backend: missing db, keys or hub")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Backend{db: opts.DB, keys: opts.Keys, hub: opts.Hub, publisher: opts.Publisher, logger: logger}, nil
}

// Client returns a backend.Client acting for whoever holds the token in tokens.
func (b *Backend) Client(tokens TokenStore) *Client {
	return &Client{b: b, tokens: tokens}
}

type Client struct {
	b      *Backend
	tokens TokenStore
}

var _ backend.Client = (*Client)(nil)

// identity resolves the stored token to a user and its live session.
func (c *Client) identity(ctx context.Context) (*model.User, *store.Session, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(tok) == "" {
		return nil, nil, nil
	}
	claims, err := c.b.keys.Verify(tok)
	if err != nil {
		// A stale or foreign token simply means nobody is signed in.
		c.b.logger.WithError(err).Debug("ignoring session token")
		return nil, nil, nil
	}
	sess, ok, err := c.b.db.SessionByID(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if !ok || !sess.Active() || sess.UserID != claims.UserID() {
		return nil, nil, nil
	}
	u, ok, err := c.b.db.UserByID(ctx, claims.UserID())
	if err != nil || !ok {
		return nil, nil, err
	}
	return &u, &sess, nil
}

func (c *Client) requireUser(ctx context.Context) (*model.User, error) {
	u, _, err := c.identity(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, backend.ErrNoSession
	}
	return u, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	u, _, err := c.identity(ctx)
	return u, err
}

func (c *Client) SignIn(ctx context.Context, name string) (*model.User, error) {
	u, err := c.b.db.EnsureUser(ctx, name)
	if err != nil {
		return nil, err
	}
	sess, err := c.b.db.CreateSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	tok, err := c.b.keys.Issue(u.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(tok); err != nil {
		return nil, err
	}
	c.b.logger.WithFields(logrus.Fields{"user": u.ID, "session": sess.ID}).Info("signed in")
	return &u, nil
}

// SignOut clears the local token (except for SignOutOthers) before revoking server-side
// sessions, so a failing revoke still leaves this client signed out.
func (c *Client) SignOut(ctx context.Context, scope backend.SignOutScope) error {
	u, sess, idErr := c.identity(ctx)

	if scope != backend.SignOutOthers {
		if err := c.tokens.SetToken(""); err != nil {
			return err
		}
	}
	if idErr != nil {
		return idErr
	}
	if u == nil || sess == nil {
		return nil
	}

	switch scope {
	case backend.SignOutGlobal:
		_, err := c.b.db.RevokeUserSessions(ctx, u.ID, "")
		return err
	case backend.SignOutOthers:
		_, err := c.b.db.RevokeUserSessions(ctx, u.ID, sess.ID)
		return err
	default:
		return c.b.db.RevokeSession(ctx, sess.ID)
	}
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	u, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := c.b.db.ListTasks(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for i := range tasks {
		if perm.CanReadTask(u.ID, &tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out, nil
}

func (c *Client) InsertTask(ctx context.Context, nt backend.NewTask) error {
	u, err := c.requireUser(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(nt.OwnerID) != u.ID {
		return backend.OwnerOnlyError{UserID: u.ID, OwnerID: nt.OwnerID}
	}
	text, err := model.NormalizeTaskText(nt.Text)
	if err != nil {
		return err
	}
	t := model.Task{
		ID:        uuid.NewString(),
		Text:      text,
		Deadline:  nt.Deadline,
		OwnerID:   u.ID,
		CreatedAt: time.Now().UTC(),
	}
	ev, err := c.b.db.InsertTask(ctx, t)
	if err != nil {
		return err
	}
	c.b.publish(ctx, ev)
	return nil
}

func (c *Client) SetComplete(ctx context.Context, id string, complete bool) error {
	u, t, err := c.loadForMutation(ctx, id)
	if err != nil || t == nil {
		return err
	}
	ev, changed, err := c.b.db.SetTaskComplete(ctx, t.ID, u.ID, complete)
	if err != nil {
		return err
	}
	if changed {
		c.b.publish(ctx, ev)
	}
	return nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	u, t, err := c.loadForMutation(ctx, id)
	if err != nil || t == nil {
		return err
	}
	ev, changed, err := c.b.db.DeleteTask(ctx, t.ID, u.ID)
	if err != nil {
		return err
	}
	if changed {
		c.b.publish(ctx, ev)
	}
	return nil
}

// loadForMutation returns a nil task (and nil error) when the row is already gone:
// updating or deleting a missing row succeeds without effect.
func (c *Client) loadForMutation(ctx context.Context, id string) (*model.User, *model.Task, error) {
	u, err := c.requireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, backend.NotFoundError{Kind: "task", ID: id}
	}
	t, ok, err := c.b.db.TaskByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return u, nil, nil
	}
	if !perm.CanMutateTask(u.ID, &t) {
		return nil, nil, backend.OwnerOnlyError{UserID: u.ID, OwnerID: t.OwnerID, TaskID: t.ID}
	}
	return u, &t, nil
}

func (c *Client) Subscribe(ctx context.Context, collection string) (backend.Subscription, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("subscribe: missing collection")
	}
	return c.b.hub.Subscribe(collection), nil
}

func (b *Backend) publish(ctx context.Context, ev model.ChangeEvent) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(ctx, ev); err != nil {
		b.logger.WithError(err).WithField("entity", ev.EntityID).Warn("publish change")
	}
}
