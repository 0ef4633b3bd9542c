package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"getitdone/internal/model"
)

func TestRenderTasksMarkdown_ChecklistAndDeadlines(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)
	past := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

	tasks := []model.Task{
		{ID: "t1", Text: "buy\nmilk", Deadline: &past},
		{ID: "t2", Text: "ship it", Complete: true},
		{ID: "t3", Text: "plan trip", Deadline: &future},
	}
	md := RenderTasksMarkdown(model.User{ID: "u1", Name: "alice"}, tasks, RenderOptions{Now: now, Location: time.UTC})

	for _, want := range []string{
		"# Tasks for alice",
		"- Completed: 1 of 3",
		"- [ ] buy milk (due Dec 1, 2025, overdue)",
		"- [x] ship it",
		"- [ ] plan trip (due Jan 5, 2026 09:30)",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q; got:\n%s", want, md)
		}
	}
}

func TestRenderTasksMarkdown_FilterAndEmpty(t *testing.T) {
	t.Parallel()

	tasks := []model.Task{
		{ID: "t1", Text: "open"},
		{ID: "t2", Text: "closed", Complete: true},
	}
	md := RenderTasksMarkdown(model.User{ID: "u1"}, tasks, RenderOptions{Filter: model.FilterActive, Location: time.UTC})
	if !strings.Contains(md, "# Tasks for u1") {
		t.Fatalf("expected user id fallback; got:\n%s", md)
	}
	if !strings.Contains(md, "- [ ] open") || strings.Contains(md, "closed") {
		t.Fatalf("expected only active tasks; got:\n%s", md)
	}

	md = RenderTasksMarkdown(model.User{Name: "bob"}, nil, RenderOptions{Location: time.UTC})
	if !strings.Contains(md, "_Nothing here._") {
		t.Fatalf("expected empty marker; got:\n%s", md)
	}
}

func TestWriteTasks_RespectsOverwrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	res, err := WriteTasks("# one\n", dir, WriteOptions{})
	if err != nil {
		t.Fatalf("WriteTasks: %v", err)
	}
	if len(res.Written) != 1 || filepath.Base(res.Written[0]) != "tasks.md" {
		t.Fatalf("unexpected result: %#v", res)
	}

	if _, err := WriteTasks("# two\n", dir, WriteOptions{}); err == nil {
		t.Fatalf("expected error when file exists without overwrite")
	}
	if _, err := WriteTasks("# two\n", dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("WriteTasks overwrite: %v", err)
	}
	b, err := os.ReadFile(res.Written[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "# two\n" {
		t.Fatalf("expected overwritten content, got %q", string(b))
	}

	if _, err := WriteTasks("x", "  ", WriteOptions{}); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
