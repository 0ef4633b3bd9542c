package local

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/notify"
	"getitdone/internal/session"
	"getitdone/internal/store"

	"github.com/sirupsen/logrus/hooks/test"
)

type recordingPublisher struct {
	mu  sync.Mutex
	evs []model.ChangeEvent
	err error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev model.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return p.err
}

func (p *recordingPublisher) types() []model.ChangeType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.ChangeType
	for _, ev := range p.evs {
		out = append(out, ev.Type)
	}
	return out
}

func newTestBackend(t *testing.T) (*Backend, *recordingPublisher) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Store{Dir: t.TempDir()}.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	keys, err := session.NewKeys([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	logger, _ := test.NewNullLogger()
	pub := &recordingPublisher{}
	b, err := New(Options{DB: db, Keys: keys, Hub: notify.NewHub(), Publisher: pub, Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, pub
}

func signedIn(t *testing.T, b *Backend, name string) (*Client, *model.User) {
	t.Helper()
	c := b.Client(&MemoryTokens{})
	u, err := c.SignIn(context.Background(), name)
	if err != nil {
		t.Fatalf("SignIn(%s): %v", name, err)
	}
	return c, u
}

func TestCurrentUser_AbsentWithoutToken(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	c := b.Client(&MemoryTokens{})
	u, err := c.CurrentUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("expected absent user, got %+v err=%v", u, err)
	}

	c = b.Client(&MemoryTokens{Value: "garbage.token.value"})
	u, err = c.CurrentUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("expected invalid token to mean absent, got %+v err=%v", u, err)
	}

	if _, err := c.ListTasks(ctx); !errors.Is(err, backend.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSignIn_ThenCurrentUser(t *testing.T) {
	b, _ := newTestBackend(t)
	c, u := signedIn(t, b, "alice")

	got, err := c.CurrentUser(context.Background())
	if err != nil || got == nil || got.ID != u.ID || got.Name != "alice" {
		t.Fatalf("unexpected current user %+v err=%v", got, err)
	}
}

func TestSignOut_Scopes(t *testing.T) {
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		b, _ := newTestBackend(t)
		c1, _ := signedIn(t, b, "alice")
		c2, _ := signedIn(t, b, "alice")
		if err := c1.SignOut(ctx, backend.SignOutLocal); err != nil {
			t.Fatalf("SignOut: %v", err)
		}
		if u, _ := c1.CurrentUser(ctx); u != nil {
			t.Fatalf("expected c1 signed out")
		}
		if u, _ := c2.CurrentUser(ctx); u == nil {
			t.Fatalf("expected c2 to remain signed in")
		}
	})

	t.Run("global", func(t *testing.T) {
		b, _ := newTestBackend(t)
		c1, _ := signedIn(t, b, "alice")
		tok := &MemoryTokens{}
		c2 := b.Client(tok)
		if _, err := c2.SignIn(ctx, "alice"); err != nil {
			t.Fatalf("SignIn: %v", err)
		}
		stolen := tok.Value

		if err := c1.SignOut(ctx, backend.SignOutGlobal); err != nil {
			t.Fatalf("SignOut: %v", err)
		}
		if u, _ := c2.CurrentUser(ctx); u != nil {
			t.Fatalf("expected every session revoked")
		}
		// The token itself is still well-formed; the revoked session must reject it.
		if u, _ := b.Client(&MemoryTokens{Value: stolen}).CurrentUser(ctx); u != nil {
			t.Fatalf("expected revoked token to be rejected")
		}
	})

	t.Run("others", func(t *testing.T) {
		b, _ := newTestBackend(t)
		c1, _ := signedIn(t, b, "alice")
		c2, _ := signedIn(t, b, "alice")
		if err := c1.SignOut(ctx, backend.SignOutOthers); err != nil {
			t.Fatalf("SignOut: %v", err)
		}
		if u, _ := c1.CurrentUser(ctx); u == nil {
			t.Fatalf("expected c1 to stay signed in")
		}
		if u, _ := c2.CurrentUser(ctx); u != nil {
			t.Fatalf("expected c2 revoked")
		}
	})

	t.Run("already signed out", func(t *testing.T) {
		b, _ := newTestBackend(t)
		c := b.Client(&MemoryTokens{})
		if err := c.SignOut(ctx, backend.SignOutLocal); err != nil {
			t.Fatalf("SignOut without session: %v", err)
		}
	})
}

func TestTasks_OwnerIsolationAndChanges(t *testing.T) {
	ctx := context.Background()
	b, pub := newTestBackend(t)
	alice, aliceUser := signedIn(t, b, "alice")
	bob, bobUser := signedIn(t, b, "bob")

	if err := alice.InsertTask(ctx, backend.NewTask{Text: "  alice task  ", OwnerID: aliceUser.ID}); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
	if err := bob.InsertTask(ctx, backend.NewTask{Text: "sneaky", OwnerID: aliceUser.ID}); !errors.As(err, &backend.OwnerOnlyError{}) {
		t.Fatalf("expected OwnerOnlyError inserting for someone else, got %v", err)
	}
	if err := bob.InsertTask(ctx, backend.NewTask{Text: "bob task", OwnerID: bobUser.ID}); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}

	aliceTasks, err := alice.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(aliceTasks) != 1 || aliceTasks[0].Text != "alice task" || aliceTasks[0].Complete {
		t.Fatalf("unexpected alice tasks: %+v", aliceTasks)
	}
	id := aliceTasks[0].ID

	if err := bob.SetComplete(ctx, id, true); !errors.As(err, &backend.OwnerOnlyError{}) {
		t.Fatalf("expected OwnerOnlyError toggling someone else's task, got %v", err)
	}
	if err := bob.DeleteTask(ctx, id); !errors.As(err, &backend.OwnerOnlyError{}) {
		t.Fatalf("expected OwnerOnlyError deleting someone else's task, got %v", err)
	}

	if err := alice.SetComplete(ctx, id, true); err != nil {
		t.Fatalf("SetComplete: %v", err)
	}
	aliceTasks, _ = alice.ListTasks(ctx)
	if !aliceTasks[0].Complete {
		t.Fatalf("expected task complete")
	}
	if err := alice.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	// Already gone: succeeds without a change.
	if err := alice.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask on missing row: %v", err)
	}
	if err := alice.SetComplete(ctx, id, false); err != nil {
		t.Fatalf("SetComplete on missing row: %v", err)
	}

	got := pub.types()
	want := []model.ChangeType{model.ChangeInsert, model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete}
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published %v, want %v", got, want)
		}
	}
}

func TestInsertTask_ValidatesText(t *testing.T) {
	ctx := context.Background()
	b, pub := newTestBackend(t)
	c, u := signedIn(t, b, "alice")

	if err := c.InsertTask(ctx, backend.NewTask{Text: "   ", OwnerID: u.ID}); !errors.Is(err, model.ErrTaskTextEmpty) {
		t.Fatalf("expected ErrTaskTextEmpty, got %v", err)
	}
	if len(pub.types()) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	b, pub := newTestBackend(t)
	pub.err = errors.New("redis down")
	c, u := signedIn(t, b, "alice")

	if err := c.InsertTask(ctx, backend.NewTask{Text: "still saved", OwnerID: u.ID}); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
	tasks, _ := c.ListTasks(ctx)
	if len(tasks) != 1 {
		t.Fatalf("expected the task to persist, got %d", len(tasks))
	}
}

func TestSubscribe_DeliversHubEvents(t *testing.T) {
	b, _ := newTestBackend(t)
	c, _ := signedIn(t, b, "alice")

	sub, err := c.Subscribe(context.Background(), model.TasksCollection)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	b.hub.Broadcast(model.ChangeEvent{Collection: model.TasksCollection, Type: model.ChangeInsert})
	select {
	case <-sub.Events():
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Subscribe(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty collection")
	}
}
