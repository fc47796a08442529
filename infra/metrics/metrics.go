// Package metrics exposes the service's Prometheus instruments. They are
// registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hack_realtime"

var (
	// ActiveConnections tracks live registered connections by role
	// ("organizer" or "participant").
	ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Number of registered WebSocket connections",
	}, []string{"role"})

	// BroadcastsTotal counts broadcast calls by push kind.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Total broadcasts issued by collaborators",
	}, []string{"kind"})

	// FramesDeliveredTotal counts frames accepted into a connection's
	// outbound buffer.
	FramesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_delivered_total",
		Help:      "Total frames enqueued for delivery",
	})

	// FramesDroppedTotal counts frames dropped because a connection was
	// closed or its buffer full. Delivery is at-most-once; drops are
	// expected under backpressure.
	FramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Total frames dropped instead of queued",
	})

	// BusEventsTotal counts domain events consumed from the message bus.
	BusEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bus_events_total",
		Help:      "Total events consumed from the message bus",
	}, []string{"handler"})
)
