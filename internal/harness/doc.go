// Package harness runs feed scenarios against a real scroll controller.
//
// A scenario drives the controller through user inputs and server
// responses, checks the status between steps, and asserts on the resulting
// trace and the fetch journal. The controller is wired to deterministic
// fakes, so every run of a scenario produces the same trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:                  # optional, same schema as feedsync config files
//	  cap: 10
//	steps:
//	  - reset: { filter: [city=berlin] }
//	  - respond: { page: 1, generate: { count: 20, prefix: p1- }, has_more: true }
//	  - load_more: {}
//	  - fail: { page: 2, status: 503 }
//	  - advance: 1s
//	  - retry: {}
//	  - expect: { page: 1, loading: true, retry_count: 1 }
//	assertions:
//	  - type: trace_count
//	    event: fetch
//	    count: 3
//	  - type: final_state
//	    table: attempts
//	    where: { request_id: req-2 }
//	    expect: { outcome: retry, status: 503 }
//
// # Steps
//
//   - reset: a filter change, optionally with seed items (seeded: true for an
//     empty seed)
//   - load_more: a proximity signal from the scroll sensor
//   - respond / fail: the server answers the oldest in-flight fetch, which
//     must be for the given page
//   - advance: moves the scheduler clock, firing due backoff timers
//   - retry: a manual retry from the error banner
//   - expect: checks status, visible ids and display node keys
//
// Fetches stay in flight until a respond or fail step releases them, which
// lets a scenario change the filter while a response is outstanding.
//
// # Assertion Types
//
//   - trace_contains: an event with the given name and args appears
//   - trace_order: events first appear in the given order
//   - trace_count: an event appears exactly N times
//   - final_state: a row of the fetch journal matches
//
// # Deterministic Testing
//
// The harness uses:
//   - Manual scheduler (testutil.ManualScheduler) for backoff timers
//   - Manual spawner (testutil.ManualSpawner) to hold fetches in flight
//   - Scripted fetcher (testutil.ScriptedFetcher) for server responses
//   - Sequential request ids (req-1, req-2, ...)
//   - In-memory SQLite journal (isolated per run)
package harness
