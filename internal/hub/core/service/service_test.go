package service

import (
	"context"
	"errors"
	"time"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

// Shared fakes for the service tests.

type fakeCatalog struct {
	vehicles  map[string]*model.Vehicle
	lookupErr error

	statusWrites []model.VehicleStatus
}

func (f *fakeCatalog) GetVehicle(_ context.Context, id string) (*model.Vehicle, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	v, ok := f.vehicles[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeCatalog) SetStatus(_ context.Context, id string, status model.VehicleStatus) error {
	if v, ok := f.vehicles[id]; ok {
		v.Status = status
	}
	f.statusWrites = append(f.statusWrites, status)
	return nil
}

type fakeStore struct {
	applied  []*model.ValidatedUpdate
	applyErr error
	stale    bool
}

func (f *fakeStore) Apply(_ context.Context, u *model.ValidatedUpdate) (model.Applied, error) {
	if f.applyErr != nil {
		return model.Applied{}, f.applyErr
	}
	f.applied = append(f.applied, u)
	return model.Applied{SnapshotWritten: !f.stale}, nil
}

func (f *fakeStore) Snapshot(context.Context, string) (*model.PositionRecord, error) {
	return nil, core.ErrNotFound
}

func (f *fakeStore) History(context.Context, string, int) ([]model.PositionRecord, error) {
	return nil, nil
}

type fakeStops struct{}

func (fakeStops) Nearby(context.Context, float64, float64, float64) ([]model.NearbyStop, error) {
	return nil, nil
}

func (fakeStops) GetStop(context.Context, string) (*model.Stop, error) {
	return nil, core.ErrNotFound
}

type recordingNotifier struct {
	notified []*model.LocationBroadcast
}

func (r *recordingNotifier) Notify(_ string, msg *model.LocationBroadcast) {
	r.notified = append(r.notified, msg)
}

var errRedisDown = errors.New("redis: connection refused")

func testVehicle(id, operator string, status model.VehicleStatus) *model.Vehicle {
	return &model.Vehicle{
		ID:         id,
		RouteID:    "route-9",
		OperatorID: operator,
		Status:     status,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func f64(v float64) *float64 { return &v }
