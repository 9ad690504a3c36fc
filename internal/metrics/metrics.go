package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "collab_service"
)

// Metrics holds all application metrics
type Metrics struct {
	// WebSocket metrics
	ConnectionsActive prometheus.Gauge
	RoomsActive       prometheus.Gauge
	MembersOnline     prometheus.Gauge

	// Event metrics
	EventsTotal       *prometheus.CounterVec
	BroadcastsDropped prometheus.Counter

	// Sweeper metrics
	PresencePurgedTotal prometheus.Counter
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Number of currently open WebSocket connections",
		}),
		RoomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of rooms with at least one tracked presence entry",
		}),
		MembersOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members_online",
			Help:      "Number of online presence entries across all rooms",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Realtime events processed, by event type",
		}, []string{"type"}),
		BroadcastsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_dropped_total",
			Help:      "Broadcast deliveries dropped because a recipient send buffer was full",
		}),
		PresencePurgedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_purged_total",
			Help:      "Offline presence entries purged by the sweeper",
		}),
	}
}
