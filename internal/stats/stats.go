// Package stats computes windowed counts over the dose log.
package stats

import "time"

// Source is the slice of the dose store the aggregator needs.
type Source interface {
	ListDates(userID int64) []time.Time
	Total(userID int64) int
}

type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// CountInWindow counts the user's recorded days inside [from, to], inclusive
// on both ends. Bounds and entries are compared as calendar days; the time
// component is ignored.
func (a *Aggregator) CountInWindow(userID int64, from, to time.Time) int {
	fromDay := day(from)
	toDay := day(to)
	n := 0
	for _, d := range a.src.ListDates(userID) {
		dd := day(d)
		if !dd.Before(fromDay) && !dd.After(toDay) {
			n++
		}
	}
	return n
}

// LastNDays counts over the trailing window [now - n days, now].
func (a *Aggregator) LastNDays(userID int64, n int, now time.Time) int {
	return a.CountInWindow(userID, now.AddDate(0, 0, -n), now)
}

// CurrentCalendarMonth counts over the calendar-aligned window
// [first day of now's month, now].
func (a *Aggregator) CurrentCalendarMonth(userID int64, now time.Time) int {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return a.CountInWindow(userID, first, now)
}

// Total returns the all-time count.
func (a *Aggregator) Total(userID int64) int {
	return a.src.Total(userID)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
