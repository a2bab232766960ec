// Package conversation implements the multi-step settings dialog as an
// explicit per-user state machine.
//
// A dialog run starts from Idle, waits for one piece of input, applies it,
// and returns to Idle. Invalid input re-prompts without changing state;
// cancel and unrelated commands abandon the dialog with no side effect.
package conversation

import (
	"context"
	"sync"
	"time"

	"pillbot/internal/scheduler"
	"pillbot/internal/settings"
	"pillbot/pkg/logx"
)

// State is one user's position in the settings dialog.
type State int

const (
	Idle State = iota
	AwaitingTime
	AwaitingWeekday
)

func (s State) String() string {
	switch s {
	case AwaitingTime:
		return "awaiting_time"
	case AwaitingWeekday:
		return "awaiting_weekday"
	default:
		return "idle"
	}
}

// SettingsStore is the slice of the settings store the dialog needs.
type SettingsStore interface {
	Get(userID int64) settings.Settings
	Set(ctx context.Context, userID int64, p settings.Patch) (settings.Settings, error)
}

// Scheduling re-arms a user's jobs after a successful settings change.
type Scheduling interface {
	RescheduleReminder(userID int64, at scheduler.TimeOfDay) error
	RescheduleReport(userID int64, weekday time.Weekday, at scheduler.TimeOfDay) error
}

// Reply prompts. Exported so the router and tests share one source of truth.
const (
	PromptTime      = "Send the new reminder time as HH:MM (for example, 08:15)."
	PromptWeekday   = "Send the report weekday: a number 0-6 (0 = Monday) or a day name."
	RepromptTime    = "That doesn't look like a time. Send HH:MM, e.g. 08:15."
	RepromptWeekday = "That doesn't look like a weekday. Send 0-6 (0 = Monday) or a day name."
	ReplyCancelled  = "Okay, nothing changed."
	ReplyIdle       = ""
)

// Flow owns the per-user dialog states and wires accepted input into the
// settings store and the scheduler.
type Flow struct {
	log   logx.Logger
	store SettingsStore
	jobs  Scheduling

	mu     sync.Mutex
	states map[int64]State
}

func New(store SettingsStore, jobs Scheduling, log logx.Logger) *Flow {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Flow{log: log, store: store, jobs: jobs, states: map[int64]State{}}
}

// State returns the user's current dialog state.
func (f *Flow) State(userID int64) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[userID]
}

// Active reports whether a dialog is open for the user.
func (f *Flow) Active(userID int64) bool { return f.State(userID) != Idle }

// StartChangeTime opens the reminder-time dialog and returns the prompt.
func (f *Flow) StartChangeTime(userID int64) string {
	f.setState(userID, AwaitingTime)
	return PromptTime
}

// StartChangeWeekday opens the report-weekday dialog and returns the prompt.
func (f *Flow) StartChangeWeekday(userID int64) string {
	f.setState(userID, AwaitingWeekday)
	return PromptWeekday
}

// Cancel abandons any open dialog with no side effect.
func (f *Flow) Cancel(userID int64) string {
	f.setState(userID, Idle)
	return ReplyCancelled
}

// Interrupt resets the dialog when an unrelated command arrives while one is
// open. Unlike Cancel it produces no reply of its own.
func (f *Flow) Interrupt(userID int64) {
	f.setState(userID, Idle)
}

// Submit feeds free-form text into the open dialog and returns the reply to
// send. Invalid input keeps the state and re-prompts. A storage failure
// keeps the state too, so the user may simply retry.
func (f *Flow) Submit(ctx context.Context, userID int64, text string) (string, error) {
	switch f.State(userID) {
	case AwaitingTime:
		return f.submitTime(ctx, userID, text)
	case AwaitingWeekday:
		return f.submitWeekday(ctx, userID, text)
	default:
		return ReplyIdle, nil
	}
}

func (f *Flow) submitTime(ctx context.Context, userID int64, text string) (string, error) {
	at, err := scheduler.ParseTimeOfDay(text)
	if err != nil {
		f.log.Debug("time input rejected", logx.Int64("user", userID), logx.Err(err))
		return RepromptTime, nil
	}

	if _, err := f.store.Set(ctx, userID, settings.Patch{
		ReminderHour:   &at.Hour,
		ReminderMinute: &at.Minute,
	}); err != nil {
		return "", err
	}
	if err := f.jobs.RescheduleReminder(userID, at); err != nil {
		return "", err
	}

	f.setState(userID, Idle)
	f.log.Info("reminder time changed", logx.Int64("user", userID), logx.String("at", at.String()))
	return "Reminder time set to " + at.String() + ".", nil
}

func (f *Flow) submitWeekday(ctx context.Context, userID int64, text string) (string, error) {
	wd, err := ParseWeekday(text)
	if err != nil {
		f.log.Debug("weekday input rejected", logx.Int64("user", userID), logx.Err(err))
		return RepromptWeekday, nil
	}

	updated, err := f.store.Set(ctx, userID, settings.Patch{ReportWeekday: &wd})
	if err != nil {
		return "", err
	}
	at := scheduler.TimeOfDay{Hour: updated.ReminderHour, Minute: updated.ReminderMinute}
	if err := f.jobs.RescheduleReport(userID, updated.Weekday(), at); err != nil {
		return "", err
	}

	f.setState(userID, Idle)
	f.log.Info("report weekday changed", logx.Int64("user", userID), logx.Int("weekday", wd))
	return "Report day set to " + updated.Weekday().String() + ".", nil
}

func (f *Flow) setState(userID int64, st State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st == Idle {
		delete(f.states, userID)
		return
	}
	f.states[userID] = st
}
