package engine

import "sync/atomic"

// Clock is a monotonic counter. The controller uses one to mint filter
// generations.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// OnFilterChange calls Next() from the caller's goroutine while the event
// loop reads Current().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific value.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
