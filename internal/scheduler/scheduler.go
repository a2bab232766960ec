// Package scheduler owns all time-triggered work: daily reminders, weekly
// reports, and one-shot test pings.
//
// Jobs are keyed by name. Installing under an existing name replaces the old
// job in the same critical section, so a reschedule never leaves a window
// where zero or two jobs with that name are armed.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pillbot/internal/clock"
	"pillbot/internal/eventbus"
	"pillbot/pkg/logx"
)

// Service runs a single timer goroutine over a min-heap of armed jobs and
// dispatches due actions to a worker pool, so one slow delivery never delays
// another user's reminder.
type Service struct {
	log logx.Logger
	bus eventbus.Bus
	clk clock.Clock

	mu   sync.Mutex
	cfg  Config
	loc  *time.Location
	jobs map[string]*job
	h    jobHeap

	parser cron.Parser

	wake    chan struct{}
	queue   chan task
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

func New(cfg Config, clk clock.Clock, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clk == nil {
		clk = clock.System()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	s := &Service{
		cfg:    cfg,
		log:    log,
		bus:    bus,
		clk:    clk,
		jobs:   map[string]*job{},
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		wake:   make(chan struct{}, 1),
	}
	s.loc = s.loadLocation(cfg.Timezone)
	return s
}

func (s *Service) loadLocation(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	size := s.cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	s.queue = make(chan task, size)

	s.wg.Add(workers + 1)
	for i := 0; i < workers; i++ {
		go func() {
			defer s.wg.Done()
			s.worker(ctx)
		}()
	}
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	s.log.Info("scheduler started", logx.Int("workers", workers), logx.String("tz", s.loc.String()))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out, continuing in background")
	}
}

// InstallDaily arms a job firing once per calendar day at the given time,
// recurring until cancelled. An existing job with the same name is replaced.
func (s *Service) InstallDaily(name string, at TimeOfDay, action Action) error {
	return s.Reschedule(name, Daily(at), action)
}

// InstallWeekly arms a job firing once per week on the given weekday.
func (s *Service) InstallWeekly(name string, at TimeOfDay, weekday time.Weekday, action Action) error {
	return s.Reschedule(name, Weekly(weekday, at), action)
}

// InstallOnceAfter arms a job firing exactly once, delay from now.
// The job removes itself after firing.
func (s *Service) InstallOnceAfter(name string, delay time.Duration, action Action) error {
	return s.Reschedule(name, OnceAfter(delay), action)
}

// Reschedule atomically replaces any job with the given name by a job with
// the new spec. Cancel-then-install happens under one lock; at no observable
// point are zero or two jobs with that name armed.
func (s *Service) Reschedule(name string, spec Spec, action Action) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("job name is empty")
	}
	if action == nil {
		return errors.New("job action is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &job{name: name, spec: spec, action: action}
	now := s.clk.Now().In(s.loc)
	switch spec.Kind {
	case KindDaily, KindWeekly:
		if !spec.At.valid() {
			return fmt.Errorf("invalid time of day %s", spec.At)
		}
		sched, err := s.parser.Parse(cronExpr(spec))
		if err != nil {
			return fmt.Errorf("parse schedule: %w", err)
		}
		j.sched = sched
		j.next = sched.Next(now)
	case KindOneShot:
		if spec.Delay < 0 {
			return errors.New("negative one-shot delay")
		}
		j.next = now.Add(spec.Delay)
	default:
		return fmt.Errorf("unknown job kind %d", spec.Kind)
	}

	if old, ok := s.jobs[name]; ok {
		heap.Remove(&s.h, old.index)
	}
	s.jobs[name] = j
	heap.Push(&s.h, j)
	s.wakeLocked()

	s.log.Debug("job armed",
		logx.String("job", name),
		logx.String("kind", spec.Kind.String()),
		logx.Time("next", j.next))
	return nil
}

// Cancel removes a job if present. Cancelling an absent name is a no-op.
func (s *Service) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return
	}
	heap.Remove(&s.h, j.index)
	delete(s.jobs, name)
	s.wakeLocked()
	s.log.Debug("job cancelled", logx.String("job", name))
}

// NextFire reports when the named job will fire next.
func (s *Service) NextFire(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return j.next, true
}

// Snapshot returns a view of all armed jobs.
func (s *Service) Snapshot() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobInfo{Name: j.name, Kind: j.spec.Kind, Next: j.next})
	}
	return out
}

// SetTimezone reloads the location and recomputes every periodic job's next
// fire time from now.
func (s *Service) SetTimezone(tz string) {
	loc := s.loadLocation(tz)

	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.String() == s.loc.String() {
		return
	}
	s.loc = loc
	now := s.clk.Now().In(loc)
	for _, j := range s.jobs {
		if j.sched != nil {
			j.next = j.sched.Next(now)
		}
	}
	heap.Init(&s.h)
	s.wakeLocked()
	s.log.Info("scheduler timezone changed", logx.String("tz", loc.String()))
}

func (s *Service) wakeLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the single timer goroutine: sleep until the earliest deadline, fire
// due jobs, repeat. Firing only enqueues; execution happens on the workers.
func (s *Service) run(ctx context.Context) {
	for {
		s.fireDue()

		s.mu.Lock()
		var waitCh <-chan time.Time
		if len(s.h) > 0 {
			d := s.h[0].next.Sub(s.clk.Now())
			if d <= 0 {
				s.mu.Unlock()
				continue
			}
			waitCh = s.clk.After(d)
		}
		stopCh := s.stopCh
		s.mu.Unlock()

		if waitCh == nil {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-s.wake:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-s.wake:
		case <-waitCh:
		}
	}
}

func (s *Service) fireDue() {
	s.mu.Lock()
	now := s.clk.Now()
	var fired []task
	for len(s.h) > 0 && !s.h[0].next.After(now) {
		j := s.h[0]
		if j.spec.Kind == KindOneShot {
			heap.Pop(&s.h)
			delete(s.jobs, j.name)
		} else {
			// Re-arm before execution: a failed delivery must not disable
			// the next natural occurrence.
			j.next = j.sched.Next(now.In(s.loc))
			heap.Fix(&s.h, 0)
		}
		fired = append(fired, task{name: j.name, kind: j.spec.Kind, run: j.action})
	}
	s.mu.Unlock()

	for _, t := range fired {
		select {
		case s.queue <- t:
		default:
			s.log.Warn("scheduler queue full, dropping job run", logx.String("job", t.name))
		}
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case t := <-s.queue:
			s.execOne(ctx, t)
		}
	}
}

func (s *Service) execOne(ctx context.Context, t task) {
	start := time.Now()
	err := t.run(ctx)
	took := time.Since(start)

	s.bus.Publish(eventbus.Event{Type: eventbus.TypeJobFired, Data: t.name})
	if err != nil {
		// Logged and swallowed: the job stays armed for its next occurrence.
		s.log.Warn("job action failed",
			logx.String("job", t.name),
			logx.String("kind", t.kind.String()),
			logx.Duration("took", took),
			logx.Err(err))
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeDeliveryFailed, Data: t.name})
		return
	}
	s.log.Debug("job ok", logx.String("job", t.name), logx.Duration("took", took))
}

func cronExpr(spec Spec) string {
	switch spec.Kind {
	case KindWeekly:
		// robfig/cron day-of-week is Sunday=0, same as time.Weekday.
		return fmt.Sprintf("%d %d * * %d", spec.At.Minute, spec.At.Hour, int(spec.Weekday))
	default:
		return fmt.Sprintf("%d %d * * *", spec.At.Minute, spec.At.Hour)
	}
}
