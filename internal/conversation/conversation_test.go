package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"pillbot/internal/scheduler"
	"pillbot/internal/settings"
	"pillbot/internal/storage"
	"pillbot/pkg/logx"
)

type rescheduleCall struct {
	job     string
	at      scheduler.TimeOfDay
	weekday time.Weekday
}

type fakeScheduling struct {
	calls []rescheduleCall
	err   error
}

func (f *fakeScheduling) RescheduleReminder(userID int64, at scheduler.TimeOfDay) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, rescheduleCall{job: "reminder", at: at})
	return nil
}

func (f *fakeScheduling) RescheduleReport(userID int64, weekday time.Weekday, at scheduler.TimeOfDay) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, rescheduleCall{job: "report", at: at, weekday: weekday})
	return nil
}

func newFlow(t *testing.T) (*Flow, *settings.Store, *fakeScheduling) {
	t.Helper()
	backend, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	st, err := settings.New(context.Background(), backend, logx.Nop())
	if err != nil {
		t.Fatalf("settings.New: %v", err)
	}
	jobs := &fakeScheduling{}
	return New(st, jobs, logx.Nop()), st, jobs
}

func TestChangeTimeHappyPath(t *testing.T) {
	t.Parallel()
	f, st, jobs := newFlow(t)
	ctx := context.Background()

	if got := f.StartChangeTime(7); got != PromptTime {
		t.Fatalf("prompt = %q", got)
	}
	if f.State(7) != AwaitingTime {
		t.Fatalf("state = %v, want AwaitingTime", f.State(7))
	}

	reply, err := f.Submit(ctx, 7, "08:15")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply == "" || f.State(7) != Idle {
		t.Fatalf("after valid submit: reply=%q state=%v", reply, f.State(7))
	}

	got := st.Get(7)
	if got.ReminderHour != 8 || got.ReminderMinute != 15 {
		t.Fatalf("settings = %+v, want 08:15", got)
	}
	if len(jobs.calls) != 1 || jobs.calls[0].job != "reminder" || jobs.calls[0].at != (scheduler.TimeOfDay{Hour: 8, Minute: 15}) {
		t.Fatalf("reschedule calls = %+v", jobs.calls)
	}
}

func TestInvalidTimeRepromptsWithoutStateChange(t *testing.T) {
	t.Parallel()
	f, st, jobs := newFlow(t)
	ctx := context.Background()

	f.StartChangeTime(9)
	before := st.Get(9)

	for _, in := range []string{"25:99", "nonsense", "12:", "24:00"} {
		reply, err := f.Submit(ctx, 9, in)
		if err != nil {
			t.Fatalf("Submit(%q): %v", in, err)
		}
		if reply != RepromptTime {
			t.Fatalf("Submit(%q) reply = %q, want reprompt", in, reply)
		}
		if f.State(9) != AwaitingTime {
			t.Fatalf("Submit(%q) state = %v, want AwaitingTime", in, f.State(9))
		}
	}
	if got := st.Get(9); got != before {
		t.Fatalf("settings changed on invalid input: %+v", got)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("unexpected reschedules: %+v", jobs.calls)
	}
}

func TestChangeWeekdayHappyPath(t *testing.T) {
	t.Parallel()
	f, st, jobs := newFlow(t)
	ctx := context.Background()

	f.StartChangeWeekday(3)
	reply, err := f.Submit(ctx, 3, "4")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply == "" || f.State(3) != Idle {
		t.Fatalf("after valid submit: reply=%q state=%v", reply, f.State(3))
	}
	if got := st.Get(3).ReportWeekday; got != 4 {
		t.Fatalf("ReportWeekday = %d, want 4", got)
	}
	// The report is rearmed at the existing reminder time.
	if len(jobs.calls) != 1 || jobs.calls[0].job != "report" {
		t.Fatalf("reschedule calls = %+v", jobs.calls)
	}
	if jobs.calls[0].weekday != time.Friday || jobs.calls[0].at != (scheduler.TimeOfDay{Hour: 7, Minute: 30}) {
		t.Fatalf("report rearmed as %+v, want Friday 07:30", jobs.calls[0])
	}
}

func TestWeekdayAcceptsNames(t *testing.T) {
	t.Parallel()
	cases := map[string]int{
		"0":        0,
		"6":        6,
		"monday":   0,
		"Friday":   4,
		" sunday ": 6,
		"wed":      2,
	}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWeekday(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"7", "-1", "someday", "", "mo"} {
		if _, err := ParseWeekday(in); err == nil {
			t.Fatalf("ParseWeekday(%q): expected error", in)
		}
	}
}

func TestCancelFromAnyState(t *testing.T) {
	t.Parallel()
	f, st, jobs := newFlow(t)

	f.StartChangeTime(5)
	if got := f.Cancel(5); got != ReplyCancelled {
		t.Fatalf("Cancel reply = %q", got)
	}
	if f.State(5) != Idle {
		t.Fatalf("state after cancel = %v", f.State(5))
	}

	f.StartChangeWeekday(5)
	f.Interrupt(5) // unrelated command while dialog open
	if f.State(5) != Idle {
		t.Fatalf("state after interrupt = %v", f.State(5))
	}

	if got := st.Get(5); got != settings.Default() {
		t.Fatalf("cancel had side effects: %+v", got)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("cancel rescheduled jobs: %+v", jobs.calls)
	}
}

func TestReentrantAfterCompletion(t *testing.T) {
	t.Parallel()
	f, _, _ := newFlow(t)
	ctx := context.Background()

	f.StartChangeTime(8)
	if _, err := f.Submit(ctx, 8, "09:00"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Machine is immediately startable again.
	f.StartChangeWeekday(8)
	if f.State(8) != AwaitingWeekday {
		t.Fatalf("state = %v, want AwaitingWeekday", f.State(8))
	}
}

func TestSubmitWhileIdleIsNoop(t *testing.T) {
	t.Parallel()
	f, st, _ := newFlow(t)
	reply, err := f.Submit(context.Background(), 11, "08:00")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply != ReplyIdle {
		t.Fatalf("reply = %q, want empty", reply)
	}
	if got := st.Get(11); got != settings.Default() {
		t.Fatalf("idle submit mutated settings: %+v", got)
	}
}

func TestRescheduleFailureKeepsState(t *testing.T) {
	t.Parallel()
	f, _, jobs := newFlow(t)
	jobs.err = errors.New("scheduler unavailable")

	f.StartChangeTime(13)
	_, err := f.Submit(context.Background(), 13, "10:00")
	if err == nil {
		t.Fatal("expected error")
	}
	if f.State(13) != AwaitingTime {
		t.Fatalf("state = %v, want AwaitingTime (retryable)", f.State(13))
	}
}
