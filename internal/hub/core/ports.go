package core

import (
	"context"
	"time"

	"buswatch.io/buswatch/internal/hub/core/model"
)

// TokenVerifier validates a bearer credential and resolves the identity
// behind it. Run exactly once per connection by the gateway.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

// VehicleCatalog is the read side of the vehicle catalog collaborator.
// Assignment and status CRUD live outside the tracking core; the core only
// consults lookups and advances the operational status.
type VehicleCatalog interface {
	// GetVehicle returns ErrNotFound for an unknown id.
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)

	// SetStatus records a status transition decided by the tracking core.
	SetStatus(ctx context.Context, id string, status model.VehicleStatus) error
}

// PositionStore is the dual-write persistence collaborator: an append-only
// history plus a latest-state snapshot per vehicle.
type PositionStore interface {
	// Apply appends a history record and conditionally overwrites the
	// snapshot (last-writer-wins by event time). A skipped snapshot is
	// reported through Applied, not as an error. Storage unavailability
	// is ErrStorageUnavailable.
	Apply(ctx context.Context, u *model.ValidatedUpdate) (model.Applied, error)

	// Snapshot returns the vehicle's last known position, ErrNotFound if
	// none has been recorded yet.
	Snapshot(ctx context.Context, vehicleID string) (*model.PositionRecord, error)

	// History returns up to limit records, newest first.
	History(ctx context.Context, vehicleID string, limit int) ([]model.PositionRecord, error)
}

// StopIndex answers proximity queries over the stop catalog. Pure read
// path, independent of publish/subscribe.
type StopIndex interface {
	Nearby(ctx context.Context, lat, lon, radiusMeters float64) ([]model.NearbyStop, error)

	// GetStop returns ErrNotFound for an unknown id.
	GetStop(ctx context.Context, id string) (*model.Stop, error)
}

// UpdateNotifier receives every accepted update after persistence. The
// WebSocket fan-out and the MQTT mirror both implement it. Notify must not
// block the publish path.
type UpdateNotifier interface {
	Notify(vehicleID string, msg *model.LocationBroadcast)
}

// MediaStore resolves object keys to short-lived download URLs for vehicle
// and stop imagery.
type MediaStore interface {
	PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}
