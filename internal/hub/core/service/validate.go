package service

import (
	"context"
	"errors"
	"fmt"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

// Accept gates a position report. Checks run in a fixed order and the first
// failure wins: structure, vehicle existence, publisher role, vehicle
// ownership. On success the returned update carries the server-assigned
// ingestion timestamp.
func (s *Service) Accept(ctx context.Context, identity model.Identity, claim *model.LocationClaim) (*model.ValidatedUpdate, error) {
	u, _, err := s.accept(ctx, identity, claim)
	return u, err
}

// accept additionally returns the catalog vehicle so Publish can reuse the
// lookup for the status transition.
func (s *Service) accept(ctx context.Context, identity model.Identity, claim *model.LocationClaim) (*model.ValidatedUpdate, *model.Vehicle, error) {
	if claim == nil {
		return nil, nil, fmt.Errorf("%w: empty claim", core.ErrInvalidPayload)
	}

	// 1. Structure.
	if err := s.validate.Struct(claim); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrInvalidPayload, err)
	}

	// 2. Existence.
	vehicle, err := s.catalog.GetVehicle(ctx, claim.VehicleID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", core.ErrUnknownVehicle, claim.VehicleID)
		}
		return nil, nil, fmt.Errorf("%w: catalog lookup: %s", core.ErrStorageUnavailable, err)
	}

	// 3. Role.
	if !identity.Role.CanPublish() {
		return nil, nil, fmt.Errorf("%w: role %s cannot publish", core.ErrForbidden, identity.Role)
	}

	// 4. Ownership. An unassigned vehicle accepts no DRIVER update; ADMIN
	// bypasses the check.
	if identity.Role == model.RoleDriver && vehicle.OperatorID != identity.SubjectID {
		return nil, nil, fmt.Errorf("%w: vehicle %s is not assigned to subject", core.ErrForbidden, claim.VehicleID)
	}

	ingested := s.now().UTC()
	eventTime := claim.Timestamp
	if eventTime.IsZero() {
		eventTime = ingested
	}

	return &model.ValidatedUpdate{
		VehicleID:  claim.VehicleID,
		Lat:        claim.Lat,
		Lon:        claim.Lon,
		Speed:      claim.Speed,
		Heading:    claim.Heading,
		Accuracy:   claim.Accuracy,
		EventTime:  eventTime.UTC(),
		IngestedAt: ingested,
		SubjectID:  identity.SubjectID,
	}, vehicle, nil
}
