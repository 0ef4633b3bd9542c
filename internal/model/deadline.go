package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	reDeadlineDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDeadlineDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2})$`)
)

// ParseDeadline parses a deadline entered by a user:
// - "" (no deadline)
// - YYYY-MM-DD (midnight in loc)
// - YYYY-MM-DD HH:MM (in loc)
// - RFC3339 (absolute)
func ParseDeadline(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	if reDeadlineDate.MatchString(s) {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid deadline %q: %w", s, err)
		}
		return &t, nil
	}
	if m := reDeadlineDateTime.FindStringSubmatch(s); m != nil {
		t, err := time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[2], loc)
		if err != nil {
			return nil, fmt.Errorf("invalid deadline %q: %w", s, err)
		}
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.In(loc)
		return &t, nil
	}
	return nil, fmt.Errorf("invalid deadline %q (expected YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}

// DeadlineIsDateOnly reports whether t sits exactly on midnight in its own location.
func DeadlineIsDateOnly(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// FormatDeadline renders a deadline as an absolute date, plus the time of day when one is set.
func FormatDeadline(t *time.Time) string {
	if t == nil {
		return ""
	}
	if DeadlineIsDateOnly(*t) {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2, 2006 15:04")
}

// DeadlineInputValue renders a deadline back into the form accepted by ParseDeadline.
func DeadlineInputValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	if DeadlineIsDateOnly(*t) {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}
