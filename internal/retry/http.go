package retry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// CheckRetry adapts the policy's classification to retryablehttp.
func (p Policy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return Classify(&TransportError{Err: err}) == Retryable, nil
	}
	if resp != nil && resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

// Backoff adapts the policy's schedule to retryablehttp.
// retryablehttp counts attempts from zero.
func (p Policy) Backoff(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	return p.Delay(attemptNum + 1)
}

// NewHTTPClient returns a retryablehttp client driven by this policy, for
// one-shot requests that retry on their own. Failed final attempts are
// passed through unchanged so callers classify them as usual.
func (p Policy) NewHTTPClient(logger *slog.Logger, timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = p.MaxRetries
	c.RetryWaitMin = p.Delay(1)
	c.RetryWaitMax = p.Delay(p.MaxRetries)
	c.CheckRetry = p.CheckRetry
	c.Backoff = p.Backoff
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if timeout > 0 {
		c.HTTPClient.Timeout = timeout
	}
	// A typed nil *slog.Logger must not reach the interface field.
	c.Logger = nil
	if logger != nil {
		c.Logger = logger
	}
	return c
}

// NewSingleShotClient returns a client that never retries on its own.
// Used where the caller owns the retry counter.
func NewSingleShotClient(logger *slog.Logger, timeout time.Duration) *retryablehttp.Client {
	return Policy{MaxRetries: 0}.NewHTTPClient(logger, timeout)
}
