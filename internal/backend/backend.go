// Package backend defines what the task views need from a hosted data service:
// identity, a task collection and change notifications.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"getitdone/internal/model"
)

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = errors.New("no session")

type SignOutScope string

const (
	SignOutLocal  SignOutScope = "local"
	SignOutGlobal SignOutScope = "global"
	SignOutOthers SignOutScope = "others"
)

func ParseSignOutScope(s string) (SignOutScope, error) {
	switch SignOutScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", SignOutLocal:
		return SignOutLocal, nil
	case SignOutGlobal:
		return SignOutGlobal, nil
	case SignOutOthers:
		return SignOutOthers, nil
	default:
		return "", fmt.Errorf("invalid sign-out scope %q (expected local|global|others)", s)
	}
}

type Auth interface {
	// CurrentUser returns (nil, nil) when nobody is signed in.
	CurrentUser(ctx context.Context) (*model.User, error)
	SignIn(ctx context.Context, name string) (*model.User, error)
	SignOut(ctx context.Context, scope SignOutScope) error
}

type NewTask struct {
	Text     string
	OwnerID  string
	Deadline *time.Time
}

type Tasks interface {
	// ListTasks returns the current user's tasks, newest first.
	ListTasks(ctx context.Context) ([]model.Task, error)
	InsertTask(ctx context.Context, t NewTask) error
	SetComplete(ctx context.Context, id string, complete bool) error
	DeleteTask(ctx context.Context, id string) error
}

// Subscription delivers change events until Close is called.
type Subscription interface {
	Events() <-chan model.ChangeEvent
	Close() error
}

type Changes interface {
	Subscribe(ctx context.Context, collection string) (Subscription, error)
}

type Client interface {
	Auth
	Tasks
	Changes
}
