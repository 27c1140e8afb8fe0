package service

import (
	"context"
	"errors"
	"fmt"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/internal/pkg/metrics"
)

// Publish runs the full ingest pipeline for one position report: gate,
// persist (history append + conditional snapshot), then fan out. The ack
// reflects persistence success only; fan-out is independent and
// best-effort. Callers must pass a context that survives the publisher's
// disconnect so an accepted update always runs to completion.
func (s *Service) Publish(ctx context.Context, identity model.Identity, claim *model.LocationClaim) (*model.PublishAck, error) {
	u, vehicle, err := s.accept(ctx, identity, claim)
	if err != nil {
		metrics.UpdatesTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	// First accepted update of an idle vehicle puts it in service.
	s.maybeActivate(ctx, vehicle)

	applied, err := s.store.Apply(ctx, u)
	if err != nil {
		metrics.UpdatesTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("%w: %s", core.ErrStorageUnavailable, err)
	}

	if !applied.SnapshotWritten {
		s.log.Debug("Stale update kept in history only",
			"vehicleID", u.VehicleID, "eventTime", u.EventTime)
	}

	msg := &model.LocationBroadcast{
		VehicleID: u.VehicleID,
		Lat:       u.Lat,
		Lon:       u.Lon,
		Speed:     u.Speed,
		Heading:   u.Heading,
		Accuracy:  u.Accuracy,
		Timestamp: u.EventTime,
	}
	for _, n := range s.notifiers {
		n.Notify(u.VehicleID, msg)
	}

	metrics.UpdatesTotal.WithLabelValues("accepted").Inc()

	return &model.PublishAck{
		VehicleID: u.VehicleID,
		Timestamp: u.EventTime,
	}, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, core.ErrUnknownVehicle):
		return "unknown_vehicle"
	case errors.Is(err, core.ErrForbidden):
		return "forbidden"
	case errors.Is(err, core.ErrStorageUnavailable):
		return "storage_error"
	default:
		return "internal"
	}
}
