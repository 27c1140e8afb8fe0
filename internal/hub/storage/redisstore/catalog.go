package redisstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

// Catalog is the vehicle catalog backed by per-vehicle hashes. Assignment
// and status CRUD belong to the fleet management surface; the tracking core
// reads entries and records status transitions.
type Catalog struct {
	rdb *redis.Client
}

var _ core.VehicleCatalog = (*Catalog)(nil)

// NewCatalog creates a Catalog on the given client.
func NewCatalog(rdb *redis.Client) *Catalog {
	return &Catalog{rdb: rdb}
}

// GetVehicle returns core.ErrNotFound for an unknown id.
func (c *Catalog) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	fields, err := c.rdb.HGetAll(ctx, vehicleKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: vehicle %s", core.ErrNotFound, id)
	}

	capacity, _ := strconv.Atoi(fields["capacity"])
	v := &model.Vehicle{
		ID:          id,
		RouteID:     fields["route_id"],
		OperatorID:  fields["operator_id"],
		Status:      model.VehicleStatus(fields["status"]),
		Capacity:    capacity,
		PlateNumber: fields["plate_number"],
		DisplayName: fields["display_name"],
		ImageKey:    fields["image_key"],
	}
	if !v.Status.Valid() {
		v.Status = model.VehicleStatusIdle
	}
	return v, nil
}

// SetStatus records a status transition. Unknown vehicles are rejected so
// a racing delete cannot resurrect the entry as a stray hash.
func (c *Catalog) SetStatus(ctx context.Context, id string, status model.VehicleStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid vehicle status %q", status)
	}

	n, err := c.rdb.Exists(ctx, vehicleKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: vehicle %s", core.ErrNotFound, id)
	}

	return c.rdb.HSet(ctx, vehicleKey(id), "status", string(status)).Err()
}

// PutVehicle writes a full catalog entry. Used by the seeding tool and by
// tests; the hub itself never creates vehicles.
func (c *Catalog) PutVehicle(ctx context.Context, v *model.Vehicle) error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	status := v.Status
	if !status.Valid() {
		status = model.VehicleStatusIdle
	}

	return c.rdb.HSet(ctx, vehicleKey(v.ID), map[string]any{
		"route_id":     v.RouteID,
		"operator_id":  v.OperatorID,
		"status":       string(status),
		"capacity":     strconv.Itoa(v.Capacity),
		"plate_number": v.PlateNumber,
		"display_name": v.DisplayName,
		"image_key":    v.ImageKey,
	}).Err()
}
