package model

import "time"

// Position is a latitude/longitude pair in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationClaim is an unvalidated position report as received from a
// publisher. Optional sensor fields are pointers so that absent and zero
// are distinguishable.
type LocationClaim struct {
	VehicleID string   `json:"vehicleId" validate:"required"`
	Lat       float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64  `json:"lon" validate:"gte=-180,lte=180"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Heading   *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`

	// Timestamp is the event time reported by the device. Mobile links
	// deliver out of order; snapshot ordering is decided by this value,
	// not by arrival. Zero means "use the ingestion time".
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ValidatedUpdate is a claim that has passed validation and authorization.
// It carries the identity that published it and the server-assigned
// ingestion timestamp.
type ValidatedUpdate struct {
	VehicleID string
	Lat       float64
	Lon       float64
	Speed     *float64
	Heading   *float64
	Accuracy  *float64

	// EventTime orders snapshot writes (last-writer-wins by event time).
	EventTime time.Time

	// IngestedAt is assigned by the hub when the update is accepted.
	IngestedAt time.Time

	// SubjectID is the publisher's identity.
	SubjectID string
}

// PositionRecord is one immutable history sample. Records are appended in
// arrival order and expire under the store's retention policy.
type PositionRecord struct {
	VehicleID  string    `json:"vehicleId"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IngestedAt time.Time `json:"ingestedAt"`
}

// Applied reports the outcome of a dual write.
type Applied struct {
	// SnapshotWritten is false when the update was older than the stored
	// snapshot and only the history append happened. Not an error.
	SnapshotWritten bool
}
