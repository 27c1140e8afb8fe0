package service

import (
	"context"

	"github.com/looplab/fsm"

	"buswatch.io/buswatch/internal/hub/core/model"
)

// eventUpdateAccepted fires when a vehicle's position report clears the
// gate.
const eventUpdateAccepted = "update_accepted"

// newStatusFSM models the operational status transitions the tracking core
// may trigger. Only IDLE vehicles go ACTIVE on an accepted update;
// MAINTENANCE and OUT_OF_SERVICE are operator-owned states the core never
// leaves on its own.
func newStatusFSM(initial model.VehicleStatus) *fsm.FSM {
	return fsm.NewFSM(
		string(initial),
		fsm.Events{
			{
				Name: eventUpdateAccepted,
				Src:  []string{string(model.VehicleStatusIdle)},
				Dst:  string(model.VehicleStatusActive),
			},
		},
		fsm.Callbacks{},
	)
}

// maybeActivate advances the vehicle's operational status for an accepted
// update. A failed catalog write is logged and ignored; status is a
// convenience, never a gate on the update itself.
func (s *Service) maybeActivate(ctx context.Context, vehicle *model.Vehicle) {
	m := newStatusFSM(vehicle.Status)
	if err := m.Event(ctx, eventUpdateAccepted); err != nil {
		// No transition from the current state.
		return
	}

	next := model.VehicleStatus(m.Current())
	if err := s.catalog.SetStatus(ctx, vehicle.ID, next); err != nil {
		s.log.Warn("Failed to record vehicle status transition",
			"vehicleID", vehicle.ID, "status", string(next), "err", err.Error())
		return
	}
	vehicle.Status = next
	s.log.Info("Vehicle status transition", "vehicleID", vehicle.ID, "status", string(next))
}
