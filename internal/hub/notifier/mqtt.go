package notifier

import (
	"context"
	"encoding/json"
	"time"

	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/pkg/log"
	pkgmqtt "buswatch.io/buswatch/pkg/mqtt"
	"buswatch.io/buswatch/pkg/mqtt/topic"
)

// queueLen bounds the egress backlog. Beyond this the mirror lags and
// drops, never the publish path.
const queueLen = 1024

type outbound struct {
	vehicleID string
	msg       *model.LocationBroadcast
}

// MQTTNotifier mirrors accepted updates to the bridge's location topics so
// external consumers (dispatch dashboards, data pipelines) can follow the
// fleet without holding a WebSocket. Messages are retained, which gives
// late joiners the last known position per vehicle.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
	queue  chan outbound
	log    log.Logger
}

// NewMQTTNotifier creates the mirror. Updates queued before Start are
// buffered and flushed once the broker connection is up.
func NewMQTTNotifier(client pkgmqtt.Client, topics *topic.Builder) *MQTTNotifier {
	return &MQTTNotifier{
		client: client,
		topics: topics,
		queue:  make(chan outbound, queueLen),
		log:    log.WithName("mqtt-mirror"),
	}
}

// Notify enqueues the update for mirroring. Never blocks; when the backlog
// is full the update is skipped, the retained topic will catch up on the
// next one.
func (n *MQTTNotifier) Notify(vehicleID string, msg *model.LocationBroadcast) {
	select {
	case n.queue <- outbound{vehicleID: vehicleID, msg: msg}:
	default:
		n.log.Warn("Mirror backlog full, skipping update", "vehicleID", vehicleID)
	}
}

// Start connects the egress client and runs the single publish worker
// until the context is canceled. One worker keeps per-vehicle publish
// order aligned with acceptance order.
func (n *MQTTNotifier) Start(ctx context.Context) error {
	if err := n.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n.client.Disconnect(shutdownCtx)
	}()

	if err := n.client.AwaitConnection(ctx); err != nil {
		return err
	}
	n.log.Info("Mirror connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-n.queue:
			n.publish(ctx, item)
		}
	}
}

func (n *MQTTNotifier) publish(ctx context.Context, item outbound) {
	payload, err := json.Marshal(item.msg)
	if err != nil {
		n.log.Error(err, "Failed to marshal broadcast", "vehicleID", item.vehicleID)
		return
	}
	t := n.topics.Location(item.vehicleID)
	if err := n.client.Publish(ctx, t, 1, true, payload); err != nil {
		n.log.Error(err, "Failed to publish location mirror", "topic", t)
	}
}
