package model

import "time"

// Wire message type identifiers for the WebSocket protocol. The same
// payload shapes are reused on the MQTT bridge.
const (
	// Client -> Server
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypePublishLocation = "publishLocation"

	// Server -> Client
	TypeLocationBroadcast = "locationBroadcast"
	TypePublishAck        = "publishAck"
	TypeErrorNotice       = "errorNotice"
)

// LocationBroadcast is delivered to every subscriber of a vehicle's topic
// after an accepted update has been persisted.
type LocationBroadcast struct {
	VehicleID string    `json:"vehicleId"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishAck is sent only to the publisher once persistence succeeded. It
// is independent of fan-out outcome.
type PublishAck struct {
	VehicleID string    `json:"vehicleId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorNotice reports a message-scoped failure to the offending connection.
type ErrorNotice struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}
