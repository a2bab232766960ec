// Package dose owns the per-user log of dose-taken dates.
package dose

import (
	"context"
	"sync"
	"time"

	"pillbot/internal/clock"
	"pillbot/internal/storage"
	"pillbot/pkg/logx"
)

// DayFormat is the canonical calendar-day form used on disk.
const DayFormat = "2006-01-02"

const recordKey = "doses"

// Store is the durable per-user dose log.
//
// Dates are kept in insertion order, one entry per calendar day. Every
// mutation persists the whole record synchronously before it is visible in
// memory, so a failed flush leaves the log unchanged.
type Store struct {
	log     logx.Logger
	backend storage.Backend
	clock   clock.Clock

	mu   sync.Mutex
	logs map[int64][]string // userID -> ISO dates, insertion order
}

func New(ctx context.Context, backend storage.Backend, clk clock.Clock, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clk == nil {
		clk = clock.System()
	}
	s := &Store{log: log, backend: backend, clock: clk, logs: map[int64][]string{}}

	loaded := map[int64][]string{}
	if _, err := backend.Load(ctx, recordKey, &loaded); err != nil {
		return nil, err
	}
	for userID, dates := range loaded {
		keep := make([]string, 0, len(dates))
		for _, d := range dates {
			if _, err := time.Parse(DayFormat, d); err != nil {
				s.log.Warn("dropping malformed date from dose log",
					logx.Int64("user", userID), logx.String("date", d))
				continue
			}
			keep = append(keep, d)
		}
		s.logs[userID] = keep
	}
	return s, nil
}

// RecordToday appends today's date to the user's log unless already present.
// It returns whether the dose was newly recorded (false = duplicate).
func (s *Store) RecordToday(ctx context.Context, userID int64) (bool, error) {
	today := s.clock.Now().Format(DayFormat)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.logs[userID]
	for _, d := range cur {
		if d == today {
			return false, nil
		}
	}

	next := make([]string, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, today)

	if err := s.persistLocked(ctx, userID, next); err != nil {
		return false, err
	}
	s.logs[userID] = next
	return true, nil
}

// Reset clears the user's log.
func (s *Store) Reset(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.logs[userID]) == 0 {
		return nil
	}
	if err := s.persistLocked(ctx, userID, nil); err != nil {
		return err
	}
	delete(s.logs, userID)
	return nil
}

// ListDates returns the user's recorded days as parsed calendar dates, in
// insertion order. The snapshot does not alias internal storage.
func (s *Store) ListDates(userID int64) []time.Time {
	s.mu.Lock()
	raw := s.logs[userID]
	dates := make([]string, len(raw))
	copy(dates, raw)
	s.mu.Unlock()

	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse(DayFormat, d)
		if err != nil {
			continue // cannot happen: validated at the write boundary
		}
		out = append(out, t)
	}
	return out
}

// Total returns the all-time number of recorded days for the user.
func (s *Store) Total(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs[userID])
}

// Users returns the IDs of all users with at least one recorded dose.
func (s *Store) Users() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.logs))
	for id := range s.logs {
		out = append(out, id)
	}
	return out
}

// persistLocked writes the full record with the given user's log replaced.
// The in-memory map is untouched; the caller commits only on success.
func (s *Store) persistLocked(ctx context.Context, userID int64, dates []string) error {
	snapshot := make(map[int64][]string, len(s.logs)+1)
	for id, ds := range s.logs {
		snapshot[id] = ds
	}
	if len(dates) == 0 {
		delete(snapshot, userID)
	} else {
		snapshot[userID] = dates
	}
	return s.backend.Save(ctx, recordKey, snapshot)
}
