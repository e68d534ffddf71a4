// Package sensor turns bursts of viewport-proximity notifications into a
// single debounced "load more" trigger.
//
// The sensor sits outside the controller: it is an external stimulus, and
// the controller ignores its trigger whenever a fetch is pending or the
// feed is exhausted.
package sensor

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a trigger fires.
const DefaultDelay = 300 * time.Millisecond

// Scheduler runs f once after d; the returned func cancels it.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Debouncer calls its trigger once notifications have been quiet for the
// configured delay. Each Notify restarts the quiet period.
type Debouncer struct {
	trigger func()
	delay   time.Duration
	sched   Scheduler

	mu      sync.Mutex
	seq     uint64
	stop    func() bool
	stopped bool
	fired   int
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithDelay sets the quiet period. Default: DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) {
		db.delay = d
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(db *Debouncer) {
		db.sched = s
	}
}

// New creates a debouncer that calls trigger. Typically trigger is
// Controller.LoadMore.
func New(trigger func(), opts ...Option) *Debouncer {
	d := &Debouncer{
		trigger: trigger,
		delay:   DefaultDelay,
		sched:   realScheduler{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify records a proximity signal and restarts the quiet period.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.stop != nil {
		d.stop()
	}
	d.seq++
	seq := d.seq
	d.stop = d.sched.AfterFunc(d.delay, func() { d.fire(seq) })
}

// fire runs the trigger unless a later Notify or Stop superseded seq.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.stop = nil
	d.fired++
	d.mu.Unlock()

	d.trigger()
}

// Stop cancels any pending trigger. Later notifications are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

// Fired returns how many times the trigger has run.
func (d *Debouncer) Fired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}
