package engine

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes user-visible failures for telemetry. Both kinds
// are presented the same way and both offer a manual retry.
type ErrorKind string

const (
	// KindTerminal is a non-retryable failure (4xx), surfaced immediately.
	KindTerminal ErrorKind = "terminal"

	// KindExhausted is a transient failure that used up its retries.
	KindExhausted ErrorKind = "exhausted"
)

// FeedError is the failure the controller surfaces in its status.
type FeedError struct {
	Kind       ErrorKind
	Message    string
	Generation int64
	Page       int
	Err        error
}

// Error implements the error interface.
func (e *FeedError) Error() string {
	return fmt.Sprintf("%s: %s (generation=%d, page=%d)", e.Kind, e.Message, e.Generation, e.Page)
}

// Unwrap returns the underlying fetch error.
func (e *FeedError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err is a surfaced non-retryable failure.
// Uses errors.As to handle wrapped errors.
func IsTerminal(err error) bool {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind == KindTerminal
	}
	return false
}

// IsExhausted reports whether err is a surfaced retry exhaustion.
func IsExhausted(err error) bool {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind == KindExhausted
	}
	return false
}

func newFeedError(kind ErrorKind, generation int64, page int, err error) *FeedError {
	return &FeedError{
		Kind:       kind,
		Message:    err.Error(),
		Generation: generation,
		Page:       page,
		Err:        err,
	}
}
