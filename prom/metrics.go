// Package prom exports smartcache events and occupancy as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	smartcache "github.com/probablyarth/smartcache-go"
)

// Metrics holds the collectors shared by every cache it observes. Each cache
// is told apart by the "cache" label.
type Metrics struct {
	EventsTotal *prometheus.CounterVec

	factory   promauto.Factory
	namespace string
}

// NewMetrics creates the collectors under namespace and registers them with
// reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache events by cache and type (hit, miss, dedup, busy, expire, evict)",
		}, []string{"cache", "event"}),
		factory:   factory,
		namespace: namespace,
	}
}

// Observer returns a smartcache.Observer that counts events for the cache
// called name. Pass it to smartcache.WithObserver.
func (m *Metrics) Observer(name string) smartcache.Observer {
	return &observer{events: m.EventsTotal.MustCurryWith(prometheus.Labels{"cache": name})}
}

// Track registers gauges that read the settled and pending sizes from stats
// on every scrape.
func (m *Metrics) Track(name string, stats func() smartcache.Stats) {
	labels := prometheus.Labels{"cache": name}
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "cache_settled_entries",
		Help:        "Settled entries currently held, expired ones included until swept",
		ConstLabels: labels,
	}, func() float64 { return float64(stats().Settled) })
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "cache_pending_fetches",
		Help:        "Fetches currently in flight",
		ConstLabels: labels,
	}, func() float64 { return float64(stats().Pending) })
}

type observer struct {
	events *prometheus.CounterVec
}

func (o *observer) On(e smartcache.EventData) {
	o.events.WithLabelValues(e.Event.String()).Add(float64(e.Count))
}
