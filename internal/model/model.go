package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTaskTextLen is the longest task text accepted, counted in code points.
const MaxTaskTextLen = 500

// TasksCollection is the collection name used for task change notifications.
const TasksCollection = "todos"

var (
	ErrTaskTextEmpty   = errors.New("task text is empty")
	ErrTaskTextTooLong = errors.New("task text is too long")
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Task struct {
	ID       string     `json:"id"`
	Text     string     `json:"task"`
	Complete bool       `json:"isComplete"`
	Deadline *time.Time `json:"deadline,omitempty"`

	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Overdue reports whether an incomplete task's deadline has passed. A date-only
// deadline stays current until the end of its day.
func (t Task) Overdue(now time.Time) bool {
	if t.Complete || t.Deadline == nil {
		return false
	}
	due := *t.Deadline
	if DeadlineIsDateOnly(due) {
		due = due.AddDate(0, 0, 1)
	}
	return !now.Before(due)
}

// NormalizeTaskText trims surrounding whitespace and validates the remaining text.
func NormalizeTaskText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrTaskTextEmpty
	}
	if utf8.RuneCountInString(s) > MaxTaskTextLen {
		return "", ErrTaskTextTooLong
	}
	return s, nil
}

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent announces that something in a collection changed. Consumers treat it
// as a signal to re-fetch; the payload is informational only.
type ChangeEvent struct {
	Collection string          `json:"collection"`
	Type       ChangeType      `json:"type"`
	EntityID   string          `json:"entityId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	At         time.Time       `json:"at"`
}
