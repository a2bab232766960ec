// Package clock abstracts "now" so day/week rollover logic can be tested
// without waiting for wall time.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// After behaves like time.After against this clock.
	After(d time.Duration) <-chan time.Time
}

// System returns the wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Manual is a hand-driven clock for tests. Advance() moves time forward and
// releases every After() waiter whose deadline has passed.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time, 1)
	at := m.now.Add(d)
	if d <= 0 {
		ch <- m.now
		return ch
	}
	m.waiters = append(m.waiters, waiter{at: at, ch: ch})
	return ch
}

// Advance moves the clock forward by d and fires due waiters in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now

	due := m.waiters[:0:0]
	rest := m.waiters[:0]
	for _, w := range m.waiters {
		if !w.at.After(now) {
			due = append(due, w)
		} else {
			rest = append(rest, w)
		}
	}
	m.waiters = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, w := range due {
		w.ch <- w.at
	}
}

// BlockUntilWaiters spins until at least n After() waiters are registered.
// Tests use it to know the code under test is parked on the clock before
// advancing time.
func (m *Manual) BlockUntilWaiters(n int) {
	for {
		m.mu.Lock()
		cur := len(m.waiters)
		m.mu.Unlock()
		if cur >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// Set jumps the clock to t (t must not be in the past of the current reading).
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	d := t.Sub(m.now)
	m.mu.Unlock()
	if d > 0 {
		m.Advance(d)
	}
}
