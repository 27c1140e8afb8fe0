package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

// maxSnapshotRetries bounds optimistic-lock retries on a contended
// snapshot key.
const maxSnapshotRetries = 5

// Store persists position updates: an append-only stream per vehicle and a
// conditionally overwritten snapshot hash. History retention is enforced
// here: every append trims records past the window, and the key TTL
// reclaims streams of vehicles that stopped reporting.
type Store struct {
	rdb       *redis.Client
	retention time.Duration
}

var _ core.PositionStore = (*Store)(nil)

// NewStore creates a Store on the given client. retention is the TTL
// applied to history streams.
func NewStore(rdb *redis.Client, retention time.Duration) *Store {
	return &Store{rdb: rdb, retention: retention}
}

// ShouldReplaceSnapshot decides whether an incoming update overwrites the
// stored snapshot: last-writer-wins by event time, with ties going to the
// newcomer so a re-sent sample refreshes sensor fields. The comparison is
// deliberately a pure function rather than a storage-side upsert rule.
func ShouldReplaceSnapshot(incoming, current time.Time) bool {
	return !incoming.Before(current)
}

// Apply performs the dual write. Both steps are attempted even when one
// fails; the first failure is reported after both ran. A snapshot skipped
// because the update is stale is success with SnapshotWritten=false.
func (s *Store) Apply(ctx context.Context, u *model.ValidatedUpdate) (model.Applied, error) {
	histErr := s.appendHistory(ctx, u)
	written, snapErr := s.writeSnapshot(ctx, u)

	applied := model.Applied{SnapshotWritten: written}
	if histErr != nil {
		return applied, fmt.Errorf("history append: %w", histErr)
	}
	if snapErr != nil {
		return applied, fmt.Errorf("snapshot write: %w", snapErr)
	}
	return applied, nil
}

func (s *Store) appendHistory(ctx context.Context, u *model.ValidatedUpdate) error {
	rec := recordFrom(u)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := historyKey(u.VehicleID)
	// Auto stream ids are arrival-time milliseconds, so a MINID trim
	// drops everything older than the retention window on every append.
	// The key TTL only matters for vehicles that stop reporting.
	minID := strconv.FormatInt(time.Now().Add(-s.retention).UnixMilli(), 10)
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			Values: map[string]any{"data": data},
		})
		pipe.XTrimMinID(ctx, key, minID)
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	return err
}

// writeSnapshot overwrites the snapshot hash iff the update's event time is
// not older than the stored one. The read-compare-write runs under an
// optimistic WATCH transaction so concurrent publishers for the same
// vehicle cannot interleave a stale overwrite.
func (s *Store) writeSnapshot(ctx context.Context, u *model.ValidatedUpdate) (bool, error) {
	key := snapshotKey(u.VehicleID)

	for i := 0; i < maxSnapshotRetries; i++ {
		var written bool

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			tsStr, err := tx.HGet(ctx, key, "ts").Result()
			var current time.Time
			switch {
			case err == nil:
				ns, perr := strconv.ParseInt(tsStr, 10, 64)
				if perr != nil {
					return fmt.Errorf("corrupt snapshot ts %q: %w", tsStr, perr)
				}
				current = time.Unix(0, ns)
			case errors.Is(err, redis.Nil):
				// No snapshot yet.
			default:
				return err
			}

			if !ShouldReplaceSnapshot(u.EventTime, current) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				// Full replace: optional fields absent from this
				// update must not linger from the previous one.
				pipe.Del(ctx, key)
				pipe.HSet(ctx, key, snapshotFields(u))
				return nil
			})
			if err == nil {
				written = true
			}
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return written, err
	}

	return false, fmt.Errorf("snapshot key %s contended beyond %d retries", key, maxSnapshotRetries)
}

// Snapshot returns the last known position, core.ErrNotFound when the
// vehicle has never reported.
func (s *Store) Snapshot(ctx context.Context, vehicleID string) (*model.PositionRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, snapshotKey(vehicleID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no snapshot for vehicle %s", core.ErrNotFound, vehicleID)
	}
	return snapshotFromFields(vehicleID, fields)
}

// History returns up to limit records, newest first.
func (s *Store) History(ctx context.Context, vehicleID string, limit int) ([]model.PositionRecord, error) {
	msgs, err := s.rdb.XRevRangeN(ctx, historyKey(vehicleID), "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.PositionRecord, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		var rec model.PositionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("corrupt history record %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordFrom(u *model.ValidatedUpdate) model.PositionRecord {
	return model.PositionRecord{
		VehicleID:  u.VehicleID,
		Lat:        u.Lat,
		Lon:        u.Lon,
		Speed:      u.Speed,
		Heading:    u.Heading,
		Accuracy:   u.Accuracy,
		Timestamp:  u.EventTime,
		IngestedAt: u.IngestedAt,
	}
}

func snapshotFields(u *model.ValidatedUpdate) map[string]any {
	fields := map[string]any{
		"lat":      strconv.FormatFloat(u.Lat, 'f', -1, 64),
		"lon":      strconv.FormatFloat(u.Lon, 'f', -1, 64),
		"ts":       strconv.FormatInt(u.EventTime.UnixNano(), 10),
		"ingested": strconv.FormatInt(u.IngestedAt.UnixNano(), 10),
	}
	if u.Speed != nil {
		fields["speed"] = strconv.FormatFloat(*u.Speed, 'f', -1, 64)
	}
	if u.Heading != nil {
		fields["heading"] = strconv.FormatFloat(*u.Heading, 'f', -1, 64)
	}
	if u.Accuracy != nil {
		fields["accuracy"] = strconv.FormatFloat(*u.Accuracy, 'f', -1, 64)
	}
	return fields
}

func snapshotFromFields(vehicleID string, fields map[string]string) (*model.PositionRecord, error) {
	rec := &model.PositionRecord{VehicleID: vehicleID}

	var err error
	if rec.Lat, err = strconv.ParseFloat(fields["lat"], 64); err != nil {
		return nil, fmt.Errorf("corrupt snapshot lat: %w", err)
	}
	if rec.Lon, err = strconv.ParseFloat(fields["lon"], 64); err != nil {
		return nil, fmt.Errorf("corrupt snapshot lon: %w", err)
	}

	ns, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot ts: %w", err)
	}
	rec.Timestamp = time.Unix(0, ns).UTC()

	if raw, ok := fields["ingested"]; ok {
		if ns, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rec.IngestedAt = time.Unix(0, ns).UTC()
		}
	}

	for field, dst := range map[string]**float64{
		"speed":    &rec.Speed,
		"heading":  &rec.Heading,
		"accuracy": &rec.Accuracy,
	} {
		if raw, ok := fields[field]; ok {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt snapshot %s: %w", field, err)
			}
			*dst = &v
		}
	}

	return rec, nil
}
