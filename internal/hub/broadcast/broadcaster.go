package broadcast

import (
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/internal/hub/registry"
	"buswatch.io/buswatch/internal/pkg/metrics"
	"buswatch.io/buswatch/pkg/log"
)

// Broadcaster fans an accepted update out to every connection subscribed to
// the vehicle's topic. Deliveries are independent and best-effort: one slow
// or broken subscriber is dropped without affecting the others or the
// publisher.
type Broadcaster struct {
	reg *registry.Registry
	log log.Logger
}

// New creates a Broadcaster reading membership from reg.
func New(reg *registry.Registry) *Broadcaster {
	return &Broadcaster{
		reg: reg,
		log: log.WithName("broadcast"),
	}
}

// Notify delivers msg to all current subscribers of vehicleID. Enqueue is
// non-blocking; a subscriber whose outbound queue is full is shut down
// asynchronously instead of stalling fan-out. Delivery order per subscriber
// follows the order Notify is called in.
func (b *Broadcaster) Notify(vehicleID string, msg *model.LocationBroadcast) {
	members := b.reg.MembersOf(vehicleID)
	metrics.FanoutSize.Observe(float64(len(members)))

	for _, s := range members {
		if err := s.Enqueue(msg); err != nil {
			metrics.SubscribersDropped.Inc()
			b.log.Warn("Dropping slow subscriber", "connID", s.ID(), "vehicleID", vehicleID, "reason", err.Error())
			// Remove the membership directly as well: a subscriber
			// already shut down keeps its Shutdown hook a no-op, and
			// the stale entry would otherwise fail every broadcast.
			b.reg.Unsubscribe(vehicleID, s.ID())
			s.Shutdown("subscriber not keeping up")
		}
	}
}
