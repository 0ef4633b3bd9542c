package model

import (
	"testing"
	"time"
)

func TestParseDeadline(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("test", 2*60*60)

	tests := []struct {
		name    string
		in      string
		want    *time.Time
		wantErr bool
	}{
		{name: "empty", in: "  ", want: nil},
		{name: "date only", in: "2025-04-01", want: ptrTime(time.Date(2025, 4, 1, 0, 0, 0, 0, loc))},
		{name: "date and time", in: "2025-04-01 17:30", want: ptrTime(time.Date(2025, 4, 1, 17, 30, 0, 0, loc))},
		{name: "T separator", in: "2025-04-01T09:05", want: ptrTime(time.Date(2025, 4, 1, 9, 5, 0, 0, loc))},
		{name: "rfc3339", in: "2025-04-01T10:00:00Z", want: ptrTime(time.Date(2025, 4, 1, 12, 0, 0, 0, loc))},
		{name: "garbage", in: "next tuesday", wantErr: true},
		{name: "bad month", in: "2025-13-01", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDeadline(tt.in, loc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatDeadline(t *testing.T) {
	dateOnly := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	withTime := time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC)

	if got := FormatDeadline(&dateOnly); got != "Jan 5, 2025" {
		t.Fatalf("date only: got %q", got)
	}
	if got := FormatDeadline(&withTime); got != "Jan 5, 2025 14:30" {
		t.Fatalf("with time: got %q", got)
	}
	if got := FormatDeadline(nil); got != "" {
		t.Fatalf("nil: got %q", got)
	}
	if got := DeadlineInputValue(&withTime); got != "2025-01-05 14:30" {
		t.Fatalf("input value: got %q", got)
	}
}

func TestTask_OverdueDateOnlyLastsAllDay(t *testing.T) {
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	task := Task{Deadline: &day}

	if task.Overdue(time.Date(2025, 1, 5, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("date-only deadline should not be overdue during its day")
	}
	if !task.Overdue(time.Date(2025, 1, 6, 0, 0, 1, 0, time.UTC)) {
		t.Fatalf("date-only deadline should be overdue the next day")
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
