package engine

import (
	"sync"

	"github.com/roach88/feedsync/internal/ir"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventReset starts a new generation: clears or seeds the visible set.
	EventReset EventType = iota + 1
	// EventFetchPage asks for the next page (or a specific page on retry).
	EventFetchPage
	// EventFetchSucceeded carries a fetched page.
	EventFetchSucceeded
	// EventFetchFailed carries a fetch failure.
	EventFetchFailed
	// EventManualRetry clears a surfaced error and re-enters the fetch guard.
	EventManualRetry
)

func (t EventType) String() string {
	switch t {
	case EventReset:
		return "RESET"
	case EventFetchPage:
		return "FETCH_PAGE"
	case EventFetchSucceeded:
		return "FETCH_SUCCEEDED"
	case EventFetchFailed:
		return "FETCH_FAILED"
	case EventManualRetry:
		return "MANUAL_RETRY"
	}
	return "UNKNOWN"
}

// Event is one input to the state machine. Generation is the tag the
// event was issued under; only the fields of its Type are set.
type Event struct {
	Type       EventType
	Generation int64

	// Page is the target page. Zero on FETCH_PAGE means "the next page".
	Page int

	// RESET
	Filter  ir.Filter
	Seed    []ir.Item
	HasSeed bool

	// FETCH_SUCCEEDED / FETCH_FAILED
	RequestID string
	Items     []ir.Item
	HasMore   bool
	Err       error

	// timer is the id of the scheduled timer that produced the event.
	timer uint64
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so timer callbacks and fetch goroutines never
// block on a busy loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array drops its item slices.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
