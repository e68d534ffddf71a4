// Package engine implements the generation-fenced scroll controller.
//
// The controller owns the scroll state of one feed: the current filter
// generation, the highest merged page, the loading/hasMore flags, the
// surfaced error and the retry counter. It decides when to fetch, drops
// responses from superseded generations, merges fresh pages into the
// bounded visible set and schedules backoff retries.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All transitions run on one goroutine (Run, or Drain in tests). Public
// inputs (OnFilterChange, LoadMore, Retry), fetch completions and timer
// callbacks only enqueue events. This keeps the state machine free of
// locks beyond the snapshot mutex that lets other goroutines read Status
// and View.
//
// Event Processing Flow:
//  1. Inputs are enqueued to a FIFO queue, tagged with a generation
//  2. Run() dequeues events one at a time
//  3. processEvent() routes to the transition for the event type
//  4. Fetches are launched through the Spawner and post their result back
//     as FETCH_SUCCEEDED / FETCH_FAILED events
//  5. Retries are scheduled through the Scheduler and re-enter as
//     FETCH_PAGE events
//
// CRITICAL PATTERNS:
//
// Generation Fencing:
// OnFilterChange increments the generation counter before anything else,
// on the caller's goroutine. Every event carries the generation it was
// issued under; an event whose tag differs from the counter is dropped
// without touching state. The counter is atomic, so fencing takes effect
// even for events already sitting in the queue.
//
// One Fetch In Flight:
// The loading flag is the mutual exclusion guard. A page is fetched at
// most once per generation and page n+1 is never requested before page n
// is merged.
//
// Timer Hygiene:
// Retry timers are stopped when their generation is superseded and when
// the controller is closed.
package engine
