// Package settings owns the per-user reminder/report configuration.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pillbot/internal/storage"
	"pillbot/pkg/logx"
)

// ErrValidation marks an out-of-range field in a settings update. The prior
// settings stay untouched when it is returned.
var ErrValidation = errors.New("invalid settings value")

const recordKey = "settings"

// Settings is one user's reminder/report configuration.
//
// ReportWeekday is Monday-based (0=Monday .. 6=Sunday), matching the weekday
// numbering users type in chat.
type Settings struct {
	ReminderHour   int   `json:"reminder_hour"`
	ReminderMinute int   `json:"reminder_minute"`
	ReportWeekday  int   `json:"report_weekday"`
	ChatID         int64 `json:"chat_id,omitempty"`
}

// Default returns the settings used before a user configures anything:
// reminder at 07:30, report on Monday, no registered chat.
func Default() Settings {
	return Settings{ReminderHour: 7, ReminderMinute: 30, ReportWeekday: 0}
}

// Weekday converts the Monday-based report weekday to time.Weekday.
func (s Settings) Weekday() time.Weekday {
	return time.Weekday((s.ReportWeekday + 1) % 7)
}

// Patch is a partial settings update; nil fields are left as they are.
type Patch struct {
	ReminderHour   *int
	ReminderMinute *int
	ReportWeekday  *int
	ChatID         *int64
}

// Store is the durable per-user settings record. Reads fall back to
// Default(); writes validate, merge, and persist atomically.
type Store struct {
	log     logx.Logger
	backend storage.Backend

	mu  sync.Mutex
	all map[int64]Settings
}

func New(ctx context.Context, backend storage.Backend, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{log: log, backend: backend, all: map[int64]Settings{}}

	loaded := map[int64]Settings{}
	if _, err := backend.Load(ctx, recordKey, &loaded); err != nil {
		return nil, err
	}
	for userID, st := range loaded {
		// Bounds are enforced at the write boundary, not trusted from storage.
		if err := validate(st); err != nil {
			s.log.Warn("dropping malformed persisted settings",
				logx.Int64("user", userID), logx.Err(err))
			continue
		}
		s.all[userID] = st
	}
	return s, nil
}

// Get returns the user's settings, or defaults if none were persisted.
func (s *Store) Get(userID int64) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.all[userID]; ok {
		return st
	}
	return Default()
}

// Users returns the IDs of all users with persisted settings.
func (s *Store) Users() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.all))
	for id := range s.all {
		out = append(out, id)
	}
	return out
}

// Set validates and applies a partial update, persisting before the merged
// settings become visible. Any invalid field rejects the whole patch.
func (s *Store) Set(ctx context.Context, userID int64, p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.all[userID]
	if !ok {
		cur = Default()
	}

	next := cur
	if p.ReminderHour != nil {
		next.ReminderHour = *p.ReminderHour
	}
	if p.ReminderMinute != nil {
		next.ReminderMinute = *p.ReminderMinute
	}
	if p.ReportWeekday != nil {
		next.ReportWeekday = *p.ReportWeekday
	}
	if p.ChatID != nil {
		next.ChatID = *p.ChatID
	}
	if err := validate(next); err != nil {
		return cur, err
	}

	snapshot := make(map[int64]Settings, len(s.all)+1)
	for id, st := range s.all {
		snapshot[id] = st
	}
	snapshot[userID] = next
	if err := s.backend.Save(ctx, recordKey, snapshot); err != nil {
		return cur, err
	}
	s.all[userID] = next
	return next, nil
}

func validate(st Settings) error {
	if st.ReminderHour < 0 || st.ReminderHour > 23 {
		return fmt.Errorf("%w: hour %d not in [0,23]", ErrValidation, st.ReminderHour)
	}
	if st.ReminderMinute < 0 || st.ReminderMinute > 59 {
		return fmt.Errorf("%w: minute %d not in [0,59]", ErrValidation, st.ReminderMinute)
	}
	if st.ReportWeekday < 0 || st.ReportWeekday > 6 {
		return fmt.Errorf("%w: weekday %d not in [0,6]", ErrValidation, st.ReportWeekday)
	}
	return nil
}
