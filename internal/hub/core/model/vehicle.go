package model

import "time"

// VehicleStatus is the operational state of a tracked vehicle.
type VehicleStatus string

const (
	VehicleStatusActive       VehicleStatus = "ACTIVE"
	VehicleStatusIdle         VehicleStatus = "IDLE"
	VehicleStatusMaintenance  VehicleStatus = "MAINTENANCE"
	VehicleStatusOutOfService VehicleStatus = "OUT_OF_SERVICE"
)

// Valid reports whether s is one of the known statuses.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusActive, VehicleStatusIdle, VehicleStatusMaintenance, VehicleStatusOutOfService:
		return true
	}
	return false
}

// Vehicle is a tracked bus. Assignment and status are owned by the catalog;
// LastPosition and LastUpdated are written only by the persistence step on
// accepted location updates.
type Vehicle struct {
	ID          string
	RouteID     string
	OperatorID  string // empty when no driver is assigned
	Status      VehicleStatus
	Capacity    int
	PlateNumber string
	DisplayName string
	ImageKey    string // object key in the media store, optional

	// Last known position. Nil until the first accepted update.
	LastPosition *Position

	// LastUpdated is the event time of the snapshot. Monotonically
	// non-decreasing: an older update is appended to history but never
	// overwrites the snapshot.
	LastUpdated time.Time
}

// Assigned reports whether a driver is assigned to the vehicle.
func (v *Vehicle) Assigned() bool {
	return v.OperatorID != ""
}
