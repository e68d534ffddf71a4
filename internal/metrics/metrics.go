// Package metrics exposes Prometheus collectors for scroll controllers.
//
// Collectors are registered on a caller-supplied registry so several
// controllers (or tests) never collide on the default registry. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedsync"

// Metrics holds the controller collectors.
type Metrics struct {
	fetches      *prometheus.CounterVec
	staleDrops   prometheus.Counter
	retries      prometheus.Counter
	visibleItems prometheus.Gauge
	generation   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: outcome (ok, retry, terminal, exhausted, stale)
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "fetches_total",
			Help:      "Resolved page fetches by outcome",
		}, []string{"outcome"}),
		staleDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "stale_drops_total",
			Help:      "Events discarded because their generation was superseded",
		}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "retries_scheduled_total",
			Help:      "Backoff retries scheduled after transient failures",
		}),
		visibleItems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "visible_items",
			Help:      "Items in the visible set",
		}),
		generation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "generation",
			Help:      "Current filter generation",
		}),
	}
}

// ObserveFetch counts one resolved fetch.
func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

// StaleDrop counts one discarded event.
func (m *Metrics) StaleDrop() {
	if m == nil {
		return
	}
	m.staleDrops.Inc()
}

// RetryScheduled counts one scheduled backoff.
func (m *Metrics) RetryScheduled() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// SetVisible records the visible set size.
func (m *Metrics) SetVisible(n int) {
	if m == nil {
		return
	}
	m.visibleItems.Set(float64(n))
}

// SetGeneration records the current generation.
func (m *Metrics) SetGeneration(g int64) {
	if m == nil {
		return
	}
	m.generation.Set(float64(g))
}
