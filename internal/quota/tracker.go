// Package quota tracks the calendar-day budgets for the two metered
// external services: YouTube Data API listing units and Groq completion
// tokens. Counters reset when the local date changes; the reset check runs
// under the same lock as every read and increment so no caller can observe
// stale counters after a day boundary.
package quota

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the day's consumption.
type Snapshot struct {
	Date    string `json:"date"`
	YouTube int    `json:"youtube"`
	Groq    int    `json:"groq"`
}

// Approximate YouTube Data API v3 unit costs.
const (
	CostList   = 1   // channels.list, playlistItems.list, videos.list
	CostSearch = 100 // search.list
)

// Tracker holds the two counters and the date marker they belong to.
// The zero value is not usable; call New.
type Tracker struct {
	mu      sync.Mutex
	date    string
	youtube int
	groq    int

	now       func() time.Time
	observers []chan<- Snapshot
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithInitial seeds the counters from a persisted snapshot. The seed is
// subject to the same reset rule: a snapshot from a previous day is
// discarded on first access.
func WithInitial(s Snapshot) Option {
	return func(t *Tracker) {
		t.date = s.Date
		t.youtube = s.YouTube
		t.groq = s.Groq
	}
}

// New creates a Tracker starting from zero consumption today.
func New(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, o := range opts {
		o(t)
	}
	if t.date == "" {
		t.date = today(t.now())
	}
	return t
}

// today renders the local calendar day, the granularity at which the
// upstream providers reset their limits.
func today(now time.Time) string {
	return now.Format("2006-01-02")
}

// resetIfStale zeroes both counters when the stored date marker is not
// today. Must be called with mu held. Resetting twice is a no-op the
// second time.
func (t *Tracker) resetIfStale() {
	d := today(t.now())
	if t.date != d {
		t.date = d
		t.youtube = 0
		t.groq = 0
	}
}

// Get returns the current consumption, applying the day-reset check first.
func (t *Tracker) Get() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStale()
	return Snapshot{Date: t.date, YouTube: t.youtube, Groq: t.groq}
}

// AddYouTube adds listing units to the YouTube counter and notifies
// observers. Returns the new total.
func (t *Tracker) AddYouTube(units int) int {
	t.mu.Lock()
	t.resetIfStale()
	t.youtube += units
	s := Snapshot{Date: t.date, YouTube: t.youtube, Groq: t.groq}
	t.mu.Unlock()

	t.notify(s)
	return s.YouTube
}

// AddGroq adds completion tokens to the Groq counter and notifies
// observers. Returns the new total.
func (t *Tracker) AddGroq(tokens int) int {
	t.mu.Lock()
	t.resetIfStale()
	t.groq += tokens
	s := Snapshot{Date: t.date, YouTube: t.youtube, Groq: t.groq}
	t.mu.Unlock()

	t.notify(s)
	return s.Groq
}

// Subscribe registers a channel that receives a snapshot after every
// increment. Sends are non-blocking; a full channel drops the update
// rather than stalling the caller.
func (t *Tracker) Subscribe(ch chan<- Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, ch)
}

func (t *Tracker) notify(s Snapshot) {
	t.mu.Lock()
	observers := t.observers
	t.mu.Unlock()
	for _, ch := range observers {
		select {
		case ch <- s:
		default:
		}
	}
}
