// Package retry classifies fetch failures and computes the bounded
// exponential backoff schedule.
//
// The policy is stateless per call: retry counters live with the caller
// (the scroll controller), so the same Policy serves page fetches and
// independent one-shot requests alike.
package retry

import (
	"context"
	"errors"
	"time"
)

// Class is the retry classification of a failure.
type Class int

const (
	// Retryable failures: no response at all, or a 5xx response.
	Retryable Class = iota + 1
	// Terminal failures: any other response status (4xx), or cancellation.
	Terminal
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// Classify determines whether a failure may be retried.
func Classify(err error) Class {
	if err == nil {
		return Terminal
	}
	if errors.Is(err, context.Canceled) {
		return Terminal
	}
	// Checked before StatusError: each may wrap a 5xx.
	var de *DecodeError
	var re *RequestError
	if IsExhausted(err) || errors.As(err, &de) || errors.As(err, &re) {
		return Terminal
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= 500 {
			return Retryable
		}
		return Terminal
	}
	// Anything without a response is a transport failure.
	return Retryable
}

// Policy defines the backoff schedule.
type Policy struct {
	BaseDelay  time.Duration
	MaxRetries int
}

// MaxDelay caps a single backoff wait.
const MaxDelay = time.Hour

// DefaultPolicy retries three times after 1s, 2s and 4s.
var DefaultPolicy = Policy{
	BaseDelay:  1 * time.Second,
	MaxRetries: 3,
}

// Delay returns the wait before retry attempt k (1-indexed):
// BaseDelay * 2^(k-1), capped at MaxDelay. Non-positive k yields zero.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if d >= MaxDelay/2 {
			return MaxDelay
		}
		d *= 2
	}
	return min(d, MaxDelay)
}

// ShouldRetry reports whether a failure observed after retryCount retries
// warrants another attempt.
func (p Policy) ShouldRetry(err error, retryCount int) bool {
	return Classify(err) == Retryable && retryCount < p.MaxRetries
}

// Do runs op, retrying retryable failures on the policy schedule.
//
// Terminal failures return immediately. After MaxRetries retryable failures
// the last error is returned wrapped in ExhaustedError.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	retries := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if Classify(err) == Terminal {
			return err
		}
		if retries >= p.MaxRetries {
			return &ExhaustedError{Attempts: retries + 1, Err: err}
		}
		retries++

		timer := time.NewTimer(p.Delay(retries))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
