package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config controls the scheduler service.
type Config struct {
	Workers   int
	QueueSize int
	Timezone  string // IANA TZ, e.g. "Europe/Berlin"; empty means local
}

// Kind tags the recurrence of a named job.
type Kind int

const (
	KindDaily Kind = iota
	KindWeekly
	KindOneShot
)

func (k Kind) String() string {
	switch k {
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindOneShot:
		return "oneshot"
	default:
		return "unknown"
	}
}

// TimeOfDay is a wall-clock firing time in the scheduler's timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// ParseTimeOfDay parses "HH:MM" (e.g. "08:15") with strict bounds.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// Action is the work a job performs when due. Errors are reported to the
// observability sink and never cancel the job.
type Action func(ctx context.Context) error

// Spec describes when a named job fires.
type Spec struct {
	Kind    Kind
	At      TimeOfDay     // Daily, Weekly
	Weekday time.Weekday  // Weekly only
	Delay   time.Duration // OneShot only
}

// Daily builds the spec for a job firing once per calendar day at the given time.
func Daily(at TimeOfDay) Spec {
	return Spec{Kind: KindDaily, At: at}
}

// Weekly builds the spec for a job firing once per week on the given weekday.
func Weekly(weekday time.Weekday, at TimeOfDay) Spec {
	return Spec{Kind: KindWeekly, At: at, Weekday: weekday}
}

// OnceAfter builds the spec for a job firing exactly once, delay from installation.
func OnceAfter(delay time.Duration) Spec {
	return Spec{Kind: KindOneShot, Delay: delay}
}

// JobInfo is a read-only view of one armed job.
type JobInfo struct {
	Name string
	Kind Kind
	Next time.Time
}

type job struct {
	name   string
	spec   Spec
	action Action
	sched  cron.Schedule // nil for one-shot
	next   time.Time
	index  int
}

type task struct {
	name string
	kind Kind
	run  Action
}

// jobHeap orders armed jobs by next fire time.
type jobHeap []*job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].next.Before(h[j].next) }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *jobHeap) Push(x any)         { j := x.(*job); j.index = len(*h); *h = append(*h, j) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}
