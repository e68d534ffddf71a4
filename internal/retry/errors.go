package retry

import (
	"errors"
	"fmt"
)

// StatusError is a response that arrived with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string // truncated response body, for diagnostics
}

func (e *StatusError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// TransportError is a failure where no response arrived at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a success response whose body could not be decoded.
// A response arrived, so it is terminal.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RequestError is a request that could not be built, so it was never sent.
// Sending it again cannot succeed.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ExhaustedError is returned by Policy.Do after MaxRetries consecutive
// retryable failures. It is terminal to the caller.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted returns true if the error is an ExhaustedError.
// Uses errors.As to handle wrapped errors.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// StatusCode extracts the HTTP status of a StatusError, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
