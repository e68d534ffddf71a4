package store

import (
	"context"
	"fmt"
)

// Outcome is how a fetch attempt ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeRetry     Outcome = "retry"     // transient failure, backoff scheduled
	OutcomeTerminal  Outcome = "terminal"  // non-retryable failure surfaced
	OutcomeExhausted Outcome = "exhausted" // retries used up, failure surfaced
	OutcomeStale     Outcome = "stale"     // resolved after its generation was superseded
)

// Attempt is one journal row.
type Attempt struct {
	Seq        int64   `json:"seq"`
	Generation int64   `json:"generation"`
	Page       int     `json:"page"`
	RequestID  string  `json:"request_id"`
	FilterHash string  `json:"filter_hash"`
	Outcome    Outcome `json:"outcome"`
	Status     int     `json:"status,omitempty"`
	DelayMS    int64   `json:"delay_ms,omitempty"`
	ItemCount  int     `json:"item_count,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// WriteAttempt appends an attempt to the journal. Seq is assigned by the
// store; the field on a is ignored. Writing a request id twice is a no-op.
func (s *Store) WriteAttempt(ctx context.Context, a Attempt) error {
	if a.RequestID == "" {
		return fmt.Errorf("write attempt: request id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts
		(generation, page, request_id, filter_hash, outcome, status, delay_ms, item_count, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO NOTHING
	`,
		a.Generation,
		a.Page,
		a.RequestID,
		a.FilterHash,
		string(a.Outcome),
		a.Status,
		a.DelayMS,
		a.ItemCount,
		a.Message,
	)
	if err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}
	return nil
}

// ListAttempts returns journal rows in seq order. A generation of 0
// returns every generation.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListAttempts(ctx context.Context, generation int64) ([]Attempt, error) {
	query := `
		SELECT seq, generation, page, request_id, filter_hash, outcome, status, delay_ms, item_count, message
		FROM attempts`
	var args []any
	if generation > 0 {
		query += ` WHERE generation = ?`
		args = append(args, generation)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var a Attempt
		var outcome string
		if err := rows.Scan(
			&a.Seq, &a.Generation, &a.Page, &a.RequestID, &a.FilterHash,
			&outcome, &a.Status, &a.DelayMS, &a.ItemCount, &a.Message,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Outcome = Outcome(outcome)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// CountByOutcome tallies journal rows per outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome ORDER BY outcome ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
