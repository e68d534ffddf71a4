package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/metrics"
	"github.com/roach88/feedsync/internal/retry"
	"github.com/roach88/feedsync/internal/store"
)

// DefaultManualRetryGrace is the delay between a manual retry and the
// fetch it re-issues.
const DefaultManualRetryGrace = 100 * time.Millisecond

// Journal records resolved fetch attempts. Implemented by *store.Store.
type Journal interface {
	WriteAttempt(ctx context.Context, a store.Attempt) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithCap sets the visible set cap. Default: accum.DefaultCap.
func WithCap(cap int) Option {
	return func(c *Controller) {
		c.cap = cap
	}
}

// WithPolicy sets the retry policy. Default: retry.DefaultPolicy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithSpawner replaces the goroutine-per-fetch spawner.
func WithSpawner(s Spawner) Option {
	return func(c *Controller) {
		c.spawner = s
	}
}

// WithGroupOptions sets the grouping thresholds used by View.
func WithGroupOptions(opts group.Options) Option {
	return func(c *Controller) {
		c.groupOpts = opts
	}
}

// WithJournal records every resolved fetch attempt.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithMetrics records controller metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithManualRetryGrace sets the delay before a manual retry fetches.
func WithManualRetryGrace(d time.Duration) Option {
	return func(c *Controller) {
		c.grace = d
	}
}

// WithRequestIDs replaces the UUIDv7 request id generator.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(c *Controller) {
		c.ids = g
	}
}
