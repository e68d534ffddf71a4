package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/feedsync/internal/accum"
	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/ir"
	"github.com/roach88/feedsync/internal/metrics"
	"github.com/roach88/feedsync/internal/retry"
	"github.com/roach88/feedsync/internal/store"
)

// Controller is the generation-fenced scroll controller of one feed.
//
// Thread-safety model:
//   - OnFilterChange(), LoadMore(), Retry(), Close(): safe from any goroutine
//   - Status(), View(), State(): safe from any goroutine (snapshot reads)
//   - Run() or Drain(): the single writer; never both at once
//
// INVARIANTS:
//   - An event mutates state only if its tag equals the current generation
//   - At most one fetch is in flight per generation (loading guard)
//   - The visible set never exceeds its cap
//   - Timers of a superseded generation are stopped
type Controller struct {
	fetcher   Fetcher
	gen       *Clock
	queue     *eventQueue
	scheduler Scheduler
	spawner   Spawner
	ids       RequestIDGenerator
	journal   Journal
	metrics   *metrics.Metrics
	logger    *slog.Logger
	policy    retry.Policy
	groupOpts group.Options
	grace     time.Duration
	cap       int

	// mu guards the fields below. Only the loop goroutine writes state and
	// visible; the lock lets other goroutines take snapshots.
	mu        sync.Mutex
	state     ScrollState
	visible   *accum.Set
	timers    map[uint64]func() bool
	nextTimer uint64
	fetchCtx  context.Context
	cancel    context.CancelFunc
	onChange  func(View)
	closed    bool
}

// New creates a controller that fetches pages through f.
// Nothing is fetched until the first OnFilterChange.
func New(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   f,
		gen:       NewClock(),
		queue:     newEventQueue(),
		scheduler: RealScheduler{},
		spawner:   GoSpawner{},
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
		policy:    retry.DefaultPolicy,
		groupOpts: group.DefaultOptions(),
		grace:     DefaultManualRetryGrace,
		cap:       accum.DefaultCap,
		timers:    make(map[uint64]func() bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.visible = accum.New(c.cap)
	c.fetchCtx, c.cancel = context.WithCancel(context.Background())
	return c
}

// OnChange registers a listener called from the loop goroutine after every
// change a renderer can observe. Replaces any previous listener.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Generation returns the current generation.
func (c *Controller) Generation() int64 {
	return c.gen.Current()
}

// OnFilterChange starts a new generation for filter and returns its tag.
//
// The generation is bumped here, on the caller's goroutine, before the
// reset is queued: responses and timers of older generations are fenced
// from this point on. A nil seed clears the visible set and fetches page 1;
// a non-nil seed (even empty) becomes the visible set and nothing is
// fetched until LoadMore.
func (c *Controller) OnFilterChange(filter ir.Filter, seed []ir.Item) int64 {
	gen := c.gen.Next()

	c.mu.Lock()
	c.cancel()
	c.stopTimersLocked()
	c.mu.Unlock()

	ev := Event{
		Type:       EventReset,
		Generation: gen,
		Filter:     filter.Normalized(),
		HasSeed:    seed != nil,
	}
	if seed != nil {
		ev.Seed = append([]ir.Item{}, seed...)
	}
	if !c.queue.Enqueue(ev) {
		c.logger.Debug("reset ignored: controller closed", "generation", gen)
	}
	return gen
}

// LoadMore asks for the next page of the current generation. It is a
// suggestion: ignored while a fetch or retry is pending, after the last
// page, and while an error is showing.
func (c *Controller) LoadMore() {
	c.queue.Enqueue(Event{Type: EventFetchPage, Generation: c.gen.Current()})
}

// Retry clears a surfaced error and re-issues the failed fetch after the
// manual retry grace delay.
func (c *Controller) Retry() {
	c.queue.Enqueue(Event{Type: EventManualRetry, Generation: c.gen.Current()})
}

// Run starts the single-writer event loop.
// Blocks until the context is cancelled or Close() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine, and never together
// with Drain.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("controller starting")

	for {
		if ev, ok := c.queue.TryDequeue(); ok {
			c.dispatch(ev)
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("controller stopping: context cancelled")
			c.Close()
			return ctx.Err()

		case <-c.queue.Wait():
			// The signal channel is closed with the queue, so a closed and
			// empty queue ends the loop.
			if c.queue.Closed() && c.queue.Len() == 0 {
				c.logger.Info("controller stopping: closed")
				return nil
			}
		}
	}
}

// Drain processes queued events on the calling goroutine until the queue
// is empty, including events queued while draining. Returns the number of
// events processed.
func (c *Controller) Drain() int {
	n := 0
	for {
		ev, ok := c.queue.TryDequeue()
		if !ok {
			return n
		}
		c.dispatch(ev)
		n++
	}
}

// Close tears the controller down: pending timers are stopped, in-flight
// fetches are cancelled and later inputs are rejected.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimersLocked()
	c.cancel()
	c.mu.Unlock()

	c.queue.Close()
}

// Status returns the current status projection.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// State returns a copy of the scroll state.
func (c *Controller) State() ScrollState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns the visible items in first-seen order.
func (c *Controller) Items() []ir.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible.Items()
}

// View returns the status and the grouped display tree.
func (c *Controller) View() View {
	c.mu.Lock()
	status := c.statusLocked()
	items := c.visible.Items()
	c.mu.Unlock()

	return View{
		Status:  status,
		Items:   items,
		Buckets: group.Bucket(items, c.groupOpts),
	}
}

// PendingTimers returns the number of scheduled timers not yet fired.
func (c *Controller) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Controller) statusLocked() Status {
	s := c.state
	st := Status{
		Generation: s.Generation,
		Page:       s.Page,
		Loading:    s.Loading,
		HasMore:    s.HasMore,
		Err:        s.Err,
		RetryCount: s.RetryCount,
		ItemCount:  c.visible.Len(),
		CapReached: c.visible.Full(),
	}
	if s.Err != nil {
		st.ErrKind = s.Err.Kind
		st.Error = s.Err.Message
	}
	return st
}

// dispatch processes one event, logging failures and continuing.
func (c *Controller) dispatch(ev Event) {
	if err := c.processEvent(ev); err != nil {
		logEventError(c.logger, ev, err)
	}
}

// processEvent routes an event to its transition.
// CRITICAL: Called only from the loop goroutine - single-writer guarantee.
func (c *Controller) processEvent(ev Event) error {
	c.mu.Lock()
	closed := c.closed
	if ev.timer != 0 {
		delete(c.timers, ev.timer)
	}
	c.mu.Unlock()

	if closed {
		return nil
	}

	switch ev.Type {
	case EventReset:
		c.handleReset(ev)
	case EventFetchPage:
		c.handleFetchPage(ev)
	case EventFetchSucceeded:
		c.handleFetchSucceeded(ev)
	case EventFetchFailed:
		if ev.Err == nil {
			return fmt.Errorf("fetch failed event missing error")
		}
		c.handleFetchFailed(ev)
	case EventManualRetry:
		c.handleManualRetry(ev)
	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
	return nil
}

func (c *Controller) isStale(tag int64) bool {
	return tag != c.gen.Current()
}

// handleReset implements RESET.
func (c *Controller) handleReset(ev Event) {
	if c.isStale(ev.Generation) {
		c.dropStale(ev)
		return
	}

	c.mu.Lock()
	c.cancel()
	c.fetchCtx, c.cancel = context.WithCancel(context.Background())
	c.stopTimersLocked()
	c.state = ScrollState{
		Generation: ev.Generation,
		Filter:     ev.Filter,
		HasMore:    true,
	}
	if ev.HasSeed {
		c.visible.Reset(ev.Seed)
		c.state.HasMore = !c.visible.Full()
	} else {
		c.visible.Reset(nil)
	}
	n := c.visible.Len()
	c.mu.Unlock()

	c.metrics.SetGeneration(ev.Generation)
	c.metrics.SetVisible(n)
	c.logger.Info("filter reset",
		"generation", ev.Generation,
		"filter", ev.Filter.Key(),
		"seeded", ev.HasSeed,
		"visible", n,
	)

	if !ev.HasSeed {
		c.startFetch(1)
		return
	}
	c.notify()
}

// handleFetchPage implements the FETCH_PAGE guard.
func (c *Controller) handleFetchPage(ev Event) {
	if c.isStale(ev.Generation) {
		c.dropStale(ev)
		return
	}

	fromTimer := ev.timer != 0

	c.mu.Lock()
	s := &c.state
	if fromTimer {
		s.RetryPending = false
	}
	page := ev.Page
	if page == 0 {
		page = s.Page + 1
	}
	var skip string
	switch {
	case !fromTimer && s.RetryPending:
		skip = "retry pending"
	case s.Loading:
		skip = "fetch in flight"
	case !s.HasMore:
		skip = "no more pages"
	case s.Err != nil:
		skip = "error showing"
	case page <= s.Page:
		skip = "page already merged"
	}
	c.mu.Unlock()

	if skip != "" {
		c.logger.Debug("fetch skipped", "generation", ev.Generation, "page", page, "reason", skip)
		return
	}
	c.startFetch(page)
}

// startFetch marks the state loading and launches the fetch for page.
// The result comes back as an event tagged with the current generation.
func (c *Controller) startFetch(page int) {
	c.mu.Lock()
	c.state.Loading = true
	gen := c.state.Generation
	filter := c.state.Filter
	ctx := c.fetchCtx
	c.mu.Unlock()

	reqID := c.ids.Generate()
	c.logger.Debug("fetching page", "generation", gen, "page", page, "request_id", reqID)
	c.notify()

	c.spawner.Go(func() {
		p, err := c.fetcher.FetchPage(ctx, filter, page)
		ev := Event{
			Generation: gen,
			Page:       page,
			Filter:     filter,
			RequestID:  reqID,
		}
		if err != nil {
			ev.Type = EventFetchFailed
			ev.Err = err
		} else {
			ev.Type = EventFetchSucceeded
			ev.Items = p.Items
			ev.HasMore = p.HasMore
		}
		if !c.queue.Enqueue(ev) {
			c.logger.Debug("fetch result dropped: controller closed", "request_id", reqID)
		}
	})
}

// handleFetchSucceeded implements FETCH_SUCCEEDED.
func (c *Controller) handleFetchSucceeded(ev Event) {
	if c.isStale(ev.Generation) {
		c.dropStale(ev)
		return
	}

	c.mu.Lock()
	added, dropped := c.visible.Merge(ev.Items)
	s := &c.state
	s.Page = ev.Page
	s.HasMore = ev.HasMore && !c.visible.Full()
	s.Loading = false
	s.Err = nil
	s.RetryCount = 0
	n := c.visible.Len()
	hasMore := s.HasMore
	c.mu.Unlock()

	c.logger.Debug("page merged",
		"generation", ev.Generation,
		"page", ev.Page,
		"added", added,
		"dropped", dropped,
		"visible", n,
		"has_more", hasMore,
	)
	c.metrics.ObserveFetch(string(store.OutcomeOK))
	c.metrics.SetVisible(n)
	c.record(ev, store.OutcomeOK, 0)
	c.notify()
}

// handleFetchFailed implements FETCH_FAILED: retry on the backoff
// schedule, or surface the failure.
func (c *Controller) handleFetchFailed(ev Event) {
	if c.isStale(ev.Generation) {
		c.dropStale(ev)
		return
	}

	var (
		outcome store.Outcome
		delay   time.Duration
	)

	c.mu.Lock()
	s := &c.state
	s.Loading = false
	switch {
	case c.policy.ShouldRetry(ev.Err, s.RetryCount):
		s.RetryCount++
		delay = c.policy.Delay(s.RetryCount)
		s.RetryPending = true
		c.scheduleLocked(delay, Event{Type: EventFetchPage, Generation: ev.Generation, Page: ev.Page})
		outcome = store.OutcomeRetry
	case retry.IsExhausted(ev.Err):
		// The fetcher ran its own retry schedule.
		s.Err = newFeedError(KindExhausted, ev.Generation, ev.Page, ev.Err)
		outcome = store.OutcomeExhausted
	case retry.Classify(ev.Err) == retry.Terminal:
		s.Err = newFeedError(KindTerminal, ev.Generation, ev.Page, ev.Err)
		outcome = store.OutcomeTerminal
	default:
		exhausted := &retry.ExhaustedError{Attempts: s.RetryCount + 1, Err: ev.Err}
		s.Err = newFeedError(KindExhausted, ev.Generation, ev.Page, exhausted)
		outcome = store.OutcomeExhausted
	}
	retries := s.RetryCount
	c.mu.Unlock()

	if outcome == store.OutcomeRetry {
		c.logger.Warn("fetch failed, retry scheduled",
			"generation", ev.Generation,
			"page", ev.Page,
			"retry", retries,
			"delay", delay,
			"error", ev.Err,
		)
		c.metrics.RetryScheduled()
	} else {
		c.logger.Error("fetch failed",
			"generation", ev.Generation,
			"page", ev.Page,
			"outcome", outcome,
			"error", ev.Err,
		)
	}
	c.metrics.ObserveFetch(string(outcome))
	c.record(ev, outcome, delay)
	c.notify()
}

// handleManualRetry implements MANUAL_RETRY. Without a surfaced error
// there is nothing to retry.
func (c *Controller) handleManualRetry(ev Event) {
	if c.isStale(ev.Generation) {
		c.dropStale(ev)
		return
	}

	c.mu.Lock()
	s := &c.state
	if s.Err == nil {
		c.mu.Unlock()
		c.logger.Debug("manual retry ignored: no error", "generation", ev.Generation)
		return
	}
	page := s.Page + 1
	s.Err = nil
	s.RetryCount = 0
	s.RetryPending = true
	c.scheduleLocked(c.grace, Event{Type: EventFetchPage, Generation: ev.Generation, Page: page})
	c.mu.Unlock()

	c.logger.Info("manual retry", "generation", ev.Generation, "page", page, "delay", c.grace)
	c.notify()
}

// scheduleLocked arms a timer that enqueues ev. Caller holds mu.
func (c *Controller) scheduleLocked(d time.Duration, ev Event) {
	c.nextTimer++
	id := c.nextTimer
	ev.timer = id
	q := c.queue
	c.timers[id] = c.scheduler.AfterFunc(d, func() {
		q.Enqueue(ev)
	})
}

// stopTimersLocked stops every pending timer. Caller holds mu.
func (c *Controller) stopTimersLocked() {
	for id, stop := range c.timers {
		stop()
		delete(c.timers, id)
	}
}

// dropStale discards an event from a superseded generation.
func (c *Controller) dropStale(ev Event) {
	c.metrics.StaleDrop()
	c.logger.Debug("stale event dropped",
		"type", ev.Type,
		"tag", ev.Generation,
		"generation", c.gen.Current(),
		"page", ev.Page,
	)
	if ev.Type == EventFetchSucceeded || ev.Type == EventFetchFailed {
		c.metrics.ObserveFetch(string(store.OutcomeStale))
		c.record(ev, store.OutcomeStale, 0)
	}
}

// record writes a fetch outcome to the journal. Journal failures are
// logged and never affect feed state.
func (c *Controller) record(ev Event, outcome store.Outcome, delay time.Duration) {
	if c.journal == nil || ev.RequestID == "" {
		return
	}
	a := store.Attempt{
		Generation: ev.Generation,
		Page:       ev.Page,
		RequestID:  ev.RequestID,
		FilterHash: ev.Filter.Hash(),
		Outcome:    outcome,
		Status:     retry.StatusCode(ev.Err),
		DelayMS:    delay.Milliseconds(),
		ItemCount:  len(ev.Items),
	}
	if ev.Err != nil {
		a.Message = ev.Err.Error()
	}
	if err := c.journal.WriteAttempt(context.Background(), a); err != nil {
		c.logger.Warn("journal write failed", "request_id", ev.RequestID, "error", err)
	}
}

// notify hands a fresh view to the listener, if any.
func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(c.View())
	}
}

// logEventError logs a processing failure with the event's context.
// Processing continues with the next event.
func logEventError(logger *slog.Logger, ev Event, err error) {
	logger.Error("event processing failed",
		"error", err,
		"type", ev.Type,
		"generation", ev.Generation,
		"page", ev.Page,
		"request_id", ev.RequestID,
	)
}
