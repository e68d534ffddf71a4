package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a fake clock for timers. Nothing fires until Advance
// moves virtual time past a timer's deadline.
//
// Implements engine.Scheduler and sensor.Scheduler.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Callbacks run on the goroutine calling Advance, outside the lock.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	timers  []*manualTimer
	history []time.Duration
}

type manualTimer struct {
	id  int
	due time.Duration
	f   func()
}

// NewManualScheduler creates a scheduler at virtual time 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc schedules f to run once virtual time reaches now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &manualTimer{id: s.nextID, due: s.now + d, f: f}
	s.timers = append(s.timers, t)
	s.history = append(s.history, d)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, pending := range s.timers {
			if pending.id == t.id {
				s.timers = append(s.timers[:i], s.timers[i+1:]...)
				return true
			}
		}
		return false
	}
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order (ties in scheduling order). Timers scheduled by a callback fire in
// the same call if they fall due. Returns the number of timers fired.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	fired := 0
	for {
		s.mu.Lock()
		sort.SliceStable(s.timers, func(i, j int) bool {
			return s.timers[i].due < s.timers[j].due
		})
		if len(s.timers) == 0 || s.timers[0].due > target {
			s.now = target
			s.mu.Unlock()
			return fired
		}
		t := s.timers[0]
		s.timers = s.timers[1:]
		s.now = t.due
		s.mu.Unlock()

		t.f()
		fired++
	}
}

// Now returns the current virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers not yet fired or stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// NextDue returns the delay until the earliest pending timer.
// ok is false when nothing is pending.
func (s *ManualScheduler) NextDue() (d time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return 0, false
	}
	min := s.timers[0].due
	for _, t := range s.timers[1:] {
		if t.due < min {
			min = t.due
		}
	}
	return min - s.now, true
}

// Scheduled returns every delay ever requested, in call order.
func (s *ManualScheduler) Scheduled() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.history...)
}
