// Package store provides the SQLite-backed fetch journal.
//
// The journal is an append-only log of every resolved fetch attempt:
// which generation and page it served, how it ended (ok, retry, terminal,
// exhausted, stale), the HTTP status if any, and the backoff delay chosen.
// It is telemetry only. Feed state is never restored from it.
//
// # Ordering
//
// Rows are ordered by seq, assigned on insert. Queries always include
// ORDER BY seq ASC so traces are stable across reads.
//
// # Idempotency
//
// request_id is UNIQUE and inserts use ON CONFLICT DO NOTHING, so writing
// the same attempt twice is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The default path ":memory:" keeps the journal for the life of the process.
package store
