package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"getitdone/internal/model"
)

type RenderOptions struct {
	Filter model.Filter
	// Now decides which deadlines are overdue.
	Now time.Time
	// Location is used for displaying deadlines; nil means time.Local.
	Location *time.Location
}

// RenderTasksMarkdown renders a task list as a GitHub-style checklist.
func RenderTasksMarkdown(user model.User, tasks []model.Task, opt RenderOptions) string {
	f := opt.Filter
	if f == "" {
		f = model.FilterAll
	}
	loc := opt.Location
	if loc == nil {
		loc = time.Local
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.ID
	}
	writeLn("# Tasks for " + name)
	writeLn("")

	visible := f.Apply(tasks)
	done := 0
	for _, t := range tasks {
		if t.Complete {
			done++
		}
	}
	writeLn(fmt.Sprintf("- Filter: %s", f.Label()))
	writeLn(fmt.Sprintf("- Completed: %d of %d", done, len(tasks)))
	writeLn("- Exported: " + now.In(loc).Format(time.RFC3339))
	writeLn("")

	if len(visible) == 0 {
		writeLn("_Nothing here._")
		return buf.String()
	}

	for _, t := range visible {
		box := "[ ]"
		if t.Complete {
			box = "[x]"
		}
		line := "- " + box + " " + oneLine(t.Text)
		if t.Deadline != nil {
			d := t.Deadline.In(loc)
			line += " (due " + model.FormatDeadline(&d)
			if t.Overdue(now) {
				line += ", overdue"
			}
			line += ")"
		}
		writeLn(line)
	}
	return buf.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
