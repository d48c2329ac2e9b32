// Package metrics provides Prometheus metrics for panel navigation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so several panels (and tests) never collide on
// the default one. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	navigationsTotal   *prometheus.CounterVec
	shorteningSteps    prometheus.Counter
	fallbacksTotal     *prometheus.CounterVec
	listingEntries     *prometheus.GaugeVec
	iconQueueDropped   prometheus.Counter
	navigationDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		navigationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salpanel_navigations_total",
				Help: "Path changes by target kind and result",
			},
			[]string{"kind", "result"},
		),
		shorteningSteps: f.NewCounter(
			prometheus.CounterOpts{
				Name: "salpanel_shortening_steps_total",
				Help: "Path components dropped while looking for an accessible path",
			},
		),
		fallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salpanel_fallbacks_total",
				Help: "Recoveries to the rescue path or a fixed drive",
			},
			[]string{"target"},
		),
		listingEntries: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "salpanel_listing_entries",
				Help: "Entries in the listing a panel currently shows",
			},
			[]string{"side"},
		),
		iconQueueDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "salpanel_icon_queue_dropped_total",
				Help: "Icon jobs dropped because the queue was full",
			},
		),
		navigationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salpanel_navigation_duration_seconds",
				Help:    "Time spent in one path change",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordNavigation counts a finished path change.
func (m *Metrics) RecordNavigation(kind, result string, seconds float64) {
	if m == nil {
		return
	}
	m.navigationsTotal.WithLabelValues(kind, result).Inc()
	m.navigationDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordShortening counts one dropped path component.
func (m *Metrics) RecordShortening() {
	if m == nil {
		return
	}
	m.shorteningSteps.Inc()
}

// RecordFallback counts a recovery; target is "rescue" or "fixed".
func (m *Metrics) RecordFallback(target string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(target).Inc()
}

// SetListingEntries records the size of a panel's listing.
func (m *Metrics) SetListingEntries(side string, n int) {
	if m == nil {
		return
	}
	m.listingEntries.WithLabelValues(side).Set(float64(n))
}

// RecordIconDrop counts one dropped icon job.
func (m *Metrics) RecordIconDrop() {
	if m == nil {
		return
	}
	m.iconQueueDropped.Inc()
}
