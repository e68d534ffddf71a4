package engine

import (
	"context"
	"time"

	"github.com/roach88/feedsync/internal/ir"
)

// Fetcher performs one network call for one page of a filter.
// Failures are classified by the retry policy, so implementations should
// return retry.StatusError for HTTP failures and retry.TransportError for
// missing responses.
type Fetcher interface {
	FetchPage(ctx context.Context, filter ir.Filter, page int) (ir.Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, filter ir.Filter, page int) (ir.Page, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, filter ir.Filter, page int) (ir.Page, error) {
	return f(ctx, filter, page)
}

// Scheduler runs f once after d. The returned stop function cancels the
// call and reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// Spawner runs a fetch off the event loop.
type Spawner interface {
	Go(f func())
}

// RealScheduler schedules on the wall clock.
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// GoSpawner runs each fetch on its own goroutine.
type GoSpawner struct{}

// Go starts f on a new goroutine.
func (GoSpawner) Go(f func()) {
	go f()
}
