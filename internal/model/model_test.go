package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeTaskText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "trims", in: "  buy milk \n", want: "buy milk"},
		{name: "empty", in: "", wantErr: ErrTaskTextEmpty},
		{name: "whitespace only", in: " \t\n ", wantErr: ErrTaskTextEmpty},
		{name: "exactly max", in: strings.Repeat("a", MaxTaskTextLen), want: strings.Repeat("a", MaxTaskTextLen)},
		{name: "over max", in: strings.Repeat("a", MaxTaskTextLen+1), wantErr: ErrTaskTextTooLong},
		{name: "max counts code points", in: strings.Repeat("é", MaxTaskTextLen), want: strings.Repeat("é", MaxTaskTextLen)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeTaskText(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_ApplyPreservesOrderAndIsIdempotent(t *testing.T) {
	tasks := []Task{
		{ID: "a", Complete: false},
		{ID: "b", Complete: true},
		{ID: "c", Complete: false},
		{ID: "d", Complete: true},
	}

	ids := func(ts []Task) string {
		var parts []string
		for _, t := range ts {
			parts = append(parts, t.ID)
		}
		return strings.Join(parts, ",")
	}

	cases := map[Filter]string{
		FilterAll:       "a,b,c,d",
		FilterActive:    "a,c",
		FilterCompleted: "b,d",
	}
	for f, want := range cases {
		once := f.Apply(tasks)
		if got := ids(once); got != want {
			t.Fatalf("%s: got %s, want %s", f, got, want)
		}
		if got := ids(f.Apply(once)); got != want {
			t.Fatalf("%s applied twice: got %s, want %s", f, got, want)
		}
	}
	if ids(tasks) != "a,b,c,d" {
		t.Fatalf("input mutated: %s", ids(tasks))
	}
}

func TestFilter_ParseAndNext(t *testing.T) {
	for _, f := range Filters {
		got, err := ParseFilter(" " + strings.ToUpper(string(f)) + " ")
		if err != nil || got != f {
			t.Fatalf("ParseFilter(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFilter("done"); err == nil {
		t.Fatalf("expected error for unknown filter")
	}
	if FilterAll.Next() != FilterActive || FilterActive.Next() != FilterCompleted || FilterCompleted.Next() != FilterAll {
		t.Fatalf("unexpected filter cycle")
	}
}

func TestTask_Overdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if !(Task{Deadline: &past}).Overdue(now) {
		t.Fatalf("expected past deadline to be overdue")
	}
	if (Task{Deadline: &past, Complete: true}).Overdue(now) {
		t.Fatalf("completed task should never be overdue")
	}
	if (Task{Deadline: &future}).Overdue(now) {
		t.Fatalf("future deadline should not be overdue")
	}
	if (Task{}).Overdue(now) {
		t.Fatalf("task without deadline should not be overdue")
	}
}
