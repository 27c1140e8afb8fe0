package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionsActive tracks authenticated WebSocket connections.
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "buswatch_connections_active",
			Help: "Number of currently open authenticated connections.",
		},
	)

	// SubscriptionsActive tracks live (connection, vehicle) memberships.
	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "buswatch_subscriptions_active",
			Help: "Number of live vehicle topic subscriptions.",
		},
	)

	// UpdatesTotal counts processed location updates by outcome.
	// result: accepted, invalid_payload, unknown_vehicle, forbidden,
	// storage_error.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buswatch_location_updates_total",
			Help: "Total number of processed location updates by result.",
		},
		[]string{"result"},
	)

	// FanoutSize observes how many subscribers each accepted update was
	// delivered to.
	FanoutSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "buswatch_fanout_subscribers",
			Help:    "Subscribers per broadcast delivery.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// SubscribersDropped counts subscribers disconnected because their
	// outbound queue was full.
	SubscribersDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "buswatch_subscribers_dropped_total",
			Help: "Subscribers dropped for not keeping up with fan-out.",
		},
	)
)

// Registry is the hub's metrics registry, exposed on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(ConnectionsActive)
	Registry.MustRegister(SubscriptionsActive)
	Registry.MustRegister(UpdatesTotal)
	Registry.MustRegister(FanoutSize)
	Registry.MustRegister(SubscribersDropped)
}
