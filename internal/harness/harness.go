package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/feedsync/internal/engine"
	"github.com/roach88/feedsync/internal/ir"
	"github.com/roach88/feedsync/internal/retry"
	"github.com/roach88/feedsync/internal/store"
	"github.com/roach88/feedsync/internal/testutil"
)

// Harness is the test execution engine.
// It drives one controller wired to deterministic fakes.
type Harness struct {
	store     *store.Store
	ctrl      *engine.Controller
	scheduler *testutil.ManualScheduler
	spawner   *testutil.ManualSpawner
	fetcher   *testutil.ScriptedFetcher
	clock     *engine.Clock
	result    *Result
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Build the config and a controller over deterministic fakes
// 2. Execute steps, tracing inputs, fetches and status
// 3. Evaluate assertions against the trace and the journal
// 4. Return result with pass/fail, trace, and errors
//
// An error return means the scenario could not be executed at all; failed
// expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:     st,
		scheduler: testutil.NewManualScheduler(),
		spawner:   testutil.NewManualSpawner(),
		fetcher:   testutil.NewScriptedFetcher(),
		clock:     engine.NewClock(),
		result:    NewResult(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	opts := append(cfg.EngineOptions(),
		engine.WithScheduler(h.scheduler),
		engine.WithSpawner(h.spawner),
		engine.WithRequestIDs(testutil.NewSequentialIDs("")),
		engine.WithJournal(st),
		engine.WithLogger(h.logger),
	)
	h.ctrl = engine.New(engine.FetcherFunc(h.fetch), opts...)
	defer h.ctrl.Close()

	for i, step := range scenario.Steps {
		if err := h.execute(i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Kind(), err)
		}
	}
	h.result.Final = h.ctrl.View()

	actx := &AssertionContext{
		Store: st,
		Ctx:   context.Background(),
	}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// fetch records the call and answers from the script.
func (h *Harness) fetch(ctx context.Context, filter ir.Filter, page int) (ir.Page, error) {
	h.result.AddEvent(EventFetch, "fetch", map[string]any{
		"filter": map[string][]string(filter.Normalized()),
		"page":   page,
	}, h.clock.Next())
	return h.fetcher.FetchPage(ctx, filter, page)
}

func (h *Harness) execute(i int, step Step) error {
	switch step.Kind() {
	case StepReset:
		return h.reset(step.Reset)
	case StepLoadMore:
		h.input(StepLoadMore, nil)
		h.ctrl.LoadMore()
	case StepRespond:
		r := step.Respond
		items := r.PageItems()
		h.fetcher.Respond(r.Page, items, r.HasMore)
		h.input(StepRespond, map[string]any{
			"page":     r.Page,
			"items":    len(items),
			"has_more": r.HasMore,
		})
		if err := h.release(r.Page); err != nil {
			return err
		}
	case StepFail:
		f := step.Fail
		args := map[string]any{"page": f.Page}
		var err error
		if f.Status != 0 {
			err = &retry.StatusError{StatusCode: f.Status}
			args["status"] = f.Status
		} else {
			msg := f.Transport
			if msg == "" {
				msg = "connection reset"
			}
			err = &retry.TransportError{Err: errors.New(msg)}
			args["transport"] = msg
		}
		h.fetcher.Fail(f.Page, err)
		h.input(StepFail, args)
		if err := h.release(f.Page); err != nil {
			return err
		}
	case StepAdvance:
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.input(StepAdvance, map[string]any{"duration": d.String()})
		h.scheduler.Advance(d)
	case StepRetry:
		h.input(StepRetry, nil)
		h.ctrl.Retry()
	case StepExpect:
		for _, msg := range h.check(step.Expect) {
			h.result.AddError(fmt.Sprintf("steps[%d].expect: %s", i, msg))
		}
		return nil
	default:
		return fmt.Errorf("invalid step")
	}

	h.settle()
	return nil
}

func (h *Harness) reset(r *ResetStep) error {
	filter, err := ir.ParseFilter(r.Filter)
	if err != nil {
		return err
	}
	args := map[string]any{"filter": map[string][]string(filter.Normalized())}

	var seed []ir.Item
	if r.HasSeed() {
		seed = append([]ir.Item{}, r.Seed...)
		args["seed"] = len(seed)
	}
	h.input(StepReset, args)
	h.ctrl.OnFilterChange(filter, seed)
	h.settle()
	return nil
}

// release lets the oldest in-flight fetch reach the script. The fetch must
// consume the response scripted for page.
func (h *Harness) release(page int) error {
	if !h.spawner.RunNext() {
		return fmt.Errorf("no fetch in flight for page %d", page)
	}
	if h.fetcher.Remaining() != 0 {
		calls := h.fetcher.Calls()
		last := calls[len(calls)-1]
		return fmt.Errorf("in-flight fetch requested page %d, not page %d", last.Page, page)
	}
	return nil
}

// settle processes queued events and traces the resulting status.
func (h *Harness) settle() {
	h.ctrl.Drain()

	s := h.ctrl.Status()
	args := map[string]any{
		"generation":  s.Generation,
		"page":        s.Page,
		"loading":     s.Loading,
		"has_more":    s.HasMore,
		"retry_count": s.RetryCount,
		"items":       s.ItemCount,
	}
	if s.Err != nil {
		args["error"] = string(s.ErrKind)
	}
	if n := h.ctrl.PendingTimers(); n > 0 {
		args["timers"] = n
	}
	if s.CapReached {
		args["cap_reached"] = true
	}
	h.result.AddEvent(EventStatus, "status", args, h.clock.Next())
}

func (h *Harness) input(name string, args map[string]any) {
	h.result.AddEvent(EventInput, name, args, h.clock.Next())
}

// check compares an expect clause with the controller.
func (h *Harness) check(e *ExpectClause) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}

	v := h.ctrl.View()
	s := v.Status

	if e.Generation != nil && *e.Generation != s.Generation {
		mismatch("generation", *e.Generation, s.Generation)
	}
	if e.Page != nil && *e.Page != s.Page {
		mismatch("page", *e.Page, s.Page)
	}
	if e.Loading != nil && *e.Loading != s.Loading {
		mismatch("loading", *e.Loading, s.Loading)
	}
	if e.HasMore != nil && *e.HasMore != s.HasMore {
		mismatch("has_more", *e.HasMore, s.HasMore)
	}
	if e.RetryCount != nil && *e.RetryCount != s.RetryCount {
		mismatch("retry_count", *e.RetryCount, s.RetryCount)
	}
	if e.Items != nil && *e.Items != s.ItemCount {
		mismatch("items", *e.Items, s.ItemCount)
	}
	if e.CapReached != nil && *e.CapReached != s.CapReached {
		mismatch("cap_reached", *e.CapReached, s.CapReached)
	}
	if e.Error != nil {
		got := ""
		if s.Err != nil {
			got = string(s.ErrKind)
		}
		if *e.Error != got {
			mismatch("error", fmt.Sprintf("%q", *e.Error), fmt.Sprintf("%q", got))
		}
	}
	if e.IDs != nil {
		got := make([]string, len(v.Items))
		for i, it := range v.Items {
			got[i] = string(it.ID)
		}
		if !equalStrings(e.IDs, got) {
			mismatch("ids", e.IDs, got)
		}
	}
	if e.Nodes != nil {
		var got []string
		for _, b := range v.Buckets {
			for _, n := range b.Nodes() {
				got = append(got, n.Key())
			}
		}
		if !equalStrings(e.Nodes, got) {
			mismatch("nodes", e.Nodes, got)
		}
	}
	if e.Timers != nil && *e.Timers != h.ctrl.PendingTimers() {
		mismatch("timers", *e.Timers, h.ctrl.PendingTimers())
	}
	if e.Fetches != nil && *e.Fetches != h.spawner.Pending() {
		mismatch("fetches", *e.Fetches, h.spawner.Pending())
	}
	return errs
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
