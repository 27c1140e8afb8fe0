package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

// nearbyLimit caps a single proximity query result.
const nearbyLimit = 50

// StopIndex answers nearest-stop queries from a geo set over stop
// locations plus one JSON document per stop.
type StopIndex struct {
	rdb *redis.Client
}

var _ core.StopIndex = (*StopIndex)(nil)

// NewStopIndex creates a StopIndex on the given client.
func NewStopIndex(rdb *redis.Client) *StopIndex {
	return &StopIndex{rdb: rdb}
}

// Nearby returns stops within radiusMeters of the point, nearest first.
// Each call is computed independently from current data.
func (s *StopIndex) Nearby(ctx context.Context, lat, lon, radiusMeters float64) ([]model.NearbyStop, error) {
	locs, err := s.rdb.GeoRadius(ctx, stopsGeoKey, lon, lat, &redis.GeoRadiusQuery{
		Radius:   radiusMeters,
		Unit:     "m",
		WithDist: true,
		Sort:     "ASC",
		Count:    nearbyLimit,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(locs))
	for i, loc := range locs {
		keys[i] = stopKey(loc.Name)
	}
	docs, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.NearbyStop, 0, len(locs))
	for i, loc := range locs {
		raw, ok := docs[i].(string)
		if !ok {
			// Geo member without a document; index is ahead of a
			// deletion, skip it.
			continue
		}
		var stop model.Stop
		if err := json.Unmarshal([]byte(raw), &stop); err != nil {
			return nil, fmt.Errorf("corrupt stop document %s: %w", loc.Name, err)
		}
		out = append(out, model.NearbyStop{Stop: stop, DistanceMeters: loc.Dist})
	}
	return out, nil
}

// GetStop fetches a single stop document.
func (s *StopIndex) GetStop(ctx context.Context, id string) (*model.Stop, error) {
	raw, err := s.rdb.Get(ctx, stopKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("stop %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var stop model.Stop
	if err := json.Unmarshal([]byte(raw), &stop); err != nil {
		return nil, fmt.Errorf("corrupt stop document %s: %w", id, err)
	}
	return &stop, nil
}

// PutStop indexes a stop. Used by the seeding tool and by tests.
func (s *StopIndex) PutStop(ctx context.Context, stop *model.Stop) error {
	if stop.ID == "" {
		return fmt.Errorf("stop id is required")
	}

	doc, err := json.Marshal(stop)
	if err != nil {
		return err
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.GeoAdd(ctx, stopsGeoKey, &redis.GeoLocation{
			Name:      stop.ID,
			Longitude: stop.Lon,
			Latitude:  stop.Lat,
		})
		pipe.Set(ctx, stopKey(stop.ID), doc, 0)
		return nil
	})
	return err
}
