package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"pillbot/internal/storage"
	"pillbot/pkg/logx"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func newStore(t *testing.T) *Store {
	t.Helper()
	backend, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	s, err := New(context.Background(), backend, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestGetReturnsDefaults(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	got := s.Get(123)
	want := Settings{ReminderHour: 7, ReminderMinute: 30, ReportWeekday: 0}
	if got != want {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}
}

func TestSetRoundTripsValidValues(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	cases := []struct{ h, m int }{
		{0, 0}, {23, 59}, {9, 30}, {12, 1},
	}
	for _, tc := range cases {
		got, err := s.Set(ctx, 1, Patch{ReminderHour: intp(tc.h), ReminderMinute: intp(tc.m)})
		if err != nil {
			t.Fatalf("Set(%d:%02d): %v", tc.h, tc.m, err)
		}
		if got.ReminderHour != tc.h || got.ReminderMinute != tc.m {
			t.Fatalf("Set(%d:%02d) = %+v", tc.h, tc.m, got)
		}
		if g := s.Get(1); g != got {
			t.Fatalf("Get = %+v, want %+v", g, got)
		}
	}
}

func TestSetRejectsOutOfRange(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.Set(ctx, 2, Patch{ReminderHour: intp(8), ReminderMinute: intp(15)}); err != nil {
		t.Fatalf("valid Set: %v", err)
	}
	before := s.Get(2)

	bad := []Patch{
		{ReminderHour: intp(24)},
		{ReminderHour: intp(-1)},
		{ReminderMinute: intp(60)},
		{ReminderMinute: intp(-5)},
		{ReportWeekday: intp(7)},
		{ReportWeekday: intp(-1)},
		// One bad field rejects the whole patch.
		{ReminderHour: intp(10), ReminderMinute: intp(99)},
	}
	for i, p := range bad {
		if _, err := s.Set(ctx, 2, p); !errors.Is(err, ErrValidation) {
			t.Fatalf("bad[%d]: err = %v, want ErrValidation", i, err)
		}
		if got := s.Get(2); got != before {
			t.Fatalf("bad[%d]: settings changed to %+v", i, got)
		}
	}
}

func TestPartialPatchMerges(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.Set(ctx, 3, Patch{ReminderHour: intp(9), ReminderMinute: intp(0)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Set(ctx, 3, Patch{ReportWeekday: intp(4), ChatID: int64p(555)})
	if err != nil {
		t.Fatalf("Set weekday: %v", err)
	}
	if got.ReminderHour != 9 || got.ReminderMinute != 0 {
		t.Fatalf("reminder time lost in merge: %+v", got)
	}
	if got.ReportWeekday != 4 || got.ChatID != 555 {
		t.Fatalf("patch not applied: %+v", got)
	}
}

func TestWeekdayConversion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		monBased int
		want     time.Weekday
	}{
		{0, time.Monday},
		{1, time.Tuesday},
		{5, time.Saturday},
		{6, time.Sunday},
	}
	for _, tc := range cases {
		st := Settings{ReportWeekday: tc.monBased}
		if got := st.Weekday(); got != tc.want {
			t.Fatalf("Weekday(%d) = %v, want %v", tc.monBased, got, tc.want)
		}
	}
}
