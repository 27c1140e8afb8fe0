package service

import (
	"context"
	"fmt"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

const defaultHistoryLimit = 100

// Nearby returns stops within radiusMeters of the given point, nearest
// first. Independent of the publish/subscribe path.
func (s *Service) Nearby(ctx context.Context, lat, lon, radiusMeters float64) ([]model.NearbyStop, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", core.ErrInvalidPayload)
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", core.ErrInvalidPayload)
	}
	return s.stops.Nearby(ctx, lat, lon, radiusMeters)
}

// Snapshot returns the vehicle's last known position.
func (s *Service) Snapshot(ctx context.Context, vehicleID string) (*model.PositionRecord, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: empty vehicle id", core.ErrInvalidPayload)
	}
	return s.store.Snapshot(ctx, vehicleID)
}

// History returns up to limit recent history records, newest first.
func (s *Service) History(ctx context.Context, vehicleID string, limit int) ([]model.PositionRecord, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: empty vehicle id", core.ErrInvalidPayload)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.History(ctx, vehicleID, limit)
}

// Stop returns a single stop by id.
func (s *Service) Stop(ctx context.Context, stopID string) (*model.Stop, error) {
	if stopID == "" {
		return nil, fmt.Errorf("%w: empty stop id", core.ErrInvalidPayload)
	}
	return s.stops.GetStop(ctx, stopID)
}

// Vehicle returns the catalog entry for a vehicle.
func (s *Service) Vehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: empty vehicle id", core.ErrInvalidPayload)
	}
	return s.catalog.GetVehicle(ctx, vehicleID)
}
