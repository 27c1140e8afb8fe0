package ws

import (
	"encoding/json"

	"buswatch.io/buswatch/internal/hub/core/model"
)

// envelope is the wire framing of the WebSocket protocol. Every frame is a
// JSON object with a type tag; the payload shape depends on the type.
type envelope struct {
	Type string `json:"type"`

	// subscribe / unsubscribe
	VehicleID string `json:"vehicleId,omitempty"`

	// publishLocation
	Data json.RawMessage `json:"data,omitempty"`
}

// outbound is a server-to-client frame.
type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func broadcastFrame(msg *model.LocationBroadcast) outbound {
	return outbound{Type: model.TypeLocationBroadcast, Data: msg}
}

func ackFrame(ack *model.PublishAck) outbound {
	return outbound{Type: model.TypePublishAck, Data: ack}
}

func errorFrame(reason, message string) outbound {
	return outbound{Type: model.TypeErrorNotice, Data: model.ErrorNotice{
		Reason:  reason,
		Message: message,
	}}
}
