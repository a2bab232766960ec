package stats

import (
	"testing"
	"time"
)

type fakeSource map[int64][]string

func (f fakeSource) ListDates(userID int64) []time.Time {
	out := make([]time.Time, 0, len(f[userID]))
	for _, s := range f[userID] {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			panic(err)
		}
		out = append(out, t)
	}
	return out
}

func (f fakeSource) Total(userID int64) int { return len(f[userID]) }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTrailingVersusCalendarWindow(t *testing.T) {
	t.Parallel()
	src := fakeSource{42: {"2024-01-01", "2024-01-05", "2024-01-10"}}
	a := New(src)
	now := date("2024-01-10")

	// Trailing week [2024-01-03, 2024-01-10] counts Jan 5 and Jan 10.
	if got := a.LastNDays(42, 7, now); got != 2 {
		t.Fatalf("LastNDays(7) = %d, want 2", got)
	}
	// Calendar month [2024-01-01, 2024-01-10] counts all three.
	if got := a.CurrentCalendarMonth(42, now); got != 3 {
		t.Fatalf("CurrentCalendarMonth = %d, want 3", got)
	}
	if got := a.Total(42); got != 3 {
		t.Fatalf("Total = %d, want 3", got)
	}
}

func TestCountInWindowInclusiveBounds(t *testing.T) {
	t.Parallel()
	src := fakeSource{1: {"2024-03-01", "2024-03-15", "2024-03-31"}}
	a := New(src)

	cases := []struct {
		name     string
		from, to string
		want     int
	}{
		{"both bounds hit", "2024-03-01", "2024-03-31", 3},
		{"start equals entry", "2024-03-15", "2024-03-20", 1},
		{"end equals entry", "2024-03-10", "2024-03-15", 1},
		{"single-day window", "2024-03-15", "2024-03-15", 1},
		{"empty window", "2024-03-02", "2024-03-14", 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := a.CountInWindow(1, date(tc.from), date(tc.to)); got != tc.want {
				t.Fatalf("CountInWindow(%s, %s) = %d, want %d", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestWindowAcrossMonthBoundary(t *testing.T) {
	t.Parallel()
	// Zero-padded strings happen to sort correctly, but the aggregator must
	// compare parsed dates. A year boundary is where naive handling breaks.
	src := fakeSource{2: {"2023-12-30", "2024-01-02"}}
	a := New(src)

	if got := a.LastNDays(2, 7, date("2024-01-03")); got != 2 {
		t.Fatalf("LastNDays across year boundary = %d, want 2", got)
	}
	if got := a.CurrentCalendarMonth(2, date("2024-01-03")); got != 1 {
		t.Fatalf("CurrentCalendarMonth across year boundary = %d, want 1", got)
	}
}

func TestIgnoresTimeOfDayOnBounds(t *testing.T) {
	t.Parallel()
	src := fakeSource{3: {"2024-05-10"}}
	a := New(src)

	now := time.Date(2024, 5, 10, 23, 55, 0, 0, time.Local)
	if got := a.LastNDays(3, 0, now); got != 1 {
		t.Fatalf("LastNDays(0) late in the day = %d, want 1", got)
	}
}
