package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func update(vehicleID string, eventTime time.Time, lat, lon float64) *model.ValidatedUpdate {
	return &model.ValidatedUpdate{
		VehicleID:  vehicleID,
		Lat:        lat,
		Lon:        lon,
		EventTime:  eventTime,
		IngestedAt: eventTime,
		SubjectID:  "driver-1",
	}
}

func f64(v float64) *float64 { return &v }

func TestShouldReplaceSnapshot(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		incoming time.Time
		current  time.Time
		want     bool
	}{
		{"newer replaces", base.Add(time.Second), base, true},
		{"equal replaces", base, base, true},
		{"older does not", base.Add(-time.Second), base, false},
		{"no current snapshot", base, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReplaceSnapshot(tt.incoming, tt.current); got != tt.want {
				t.Fatalf("ShouldReplaceSnapshot(%v, %v) = %v, want %v", tt.incoming, tt.current, got, tt.want)
			}
		})
	}
}

func TestApplyDualWrite(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	u := update("bus-1", now, 37.5, 127.0)
	u.Speed = f64(31.5)

	applied, err := store.Apply(ctx, u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied.SnapshotWritten {
		t.Fatal("first update must write the snapshot")
	}

	snap, err := store.Snapshot(ctx, "bus-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Lat != 37.5 || snap.Lon != 127.0 {
		t.Fatalf("snapshot position = (%v, %v)", snap.Lat, snap.Lon)
	}
	if !snap.Timestamp.Equal(now) {
		t.Fatalf("snapshot timestamp = %v, want %v", snap.Timestamp, now)
	}
	if snap.Speed == nil || *snap.Speed != 31.5 {
		t.Fatalf("snapshot speed = %v, want 31.5", snap.Speed)
	}

	history, err := store.History(ctx, "bus-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Lat != 37.5 {
		t.Fatalf("history record lat = %v", history[0].Lat)
	}
}

func TestStaleUpdateKeptInHistoryOnly(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, err := store.Apply(ctx, update("bus-1", now, 1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An out-of-order sample arrives late.
	applied, err := store.Apply(ctx, update("bus-1", now.Add(-time.Minute), 2, 2))
	if err != nil {
		t.Fatalf("stale update must not fail: %v", err)
	}
	if applied.SnapshotWritten {
		t.Fatal("stale update must not overwrite the snapshot")
	}

	snap, err := store.Snapshot(ctx, "bus-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Lat != 1 {
		t.Fatalf("snapshot regressed to the stale sample: lat = %v", snap.Lat)
	}

	history, err := store.History(ctx, "bus-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2 (stale sample still appended)", len(history))
	}
}

func TestSnapshotFullReplaceDropsAbsentFields(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := update("bus-1", now, 1, 1)
	first.Speed = f64(50)
	first.Heading = f64(180)
	if _, err := store.Apply(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The next sample has no sensor extras; they must not linger.
	second := update("bus-1", now.Add(time.Second), 2, 2)
	if _, err := store.Apply(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := store.Snapshot(ctx, "bus-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Speed != nil || snap.Heading != nil {
		t.Fatalf("stale optional fields survived the overwrite: speed=%v heading=%v", snap.Speed, snap.Heading)
	}
}

func TestEqualEventTimeRefreshesSnapshot(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, err := store.Apply(ctx, update("bus-1", now, 1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resent := update("bus-1", now, 3, 3)
	applied, err := store.Apply(ctx, resent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied.SnapshotWritten {
		t.Fatal("same-timestamp update must refresh the snapshot")
	}

	snap, err := store.Snapshot(ctx, "bus-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Lat != 3 {
		t.Fatalf("snapshot lat = %v, want 3", snap.Lat)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)

	_, err := store.Snapshot(context.Background(), "bus-404")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestHistoryNewestFirstAndLimited(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		u := update("bus-1", base.Add(time.Duration(i)*time.Second), float64(i), 0)
		if _, err := store.Apply(ctx, u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := store.History(ctx, "bus-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	// Newest (lat=4) first, in arrival order.
	for i, wantLat := range []float64{4, 3, 2} {
		if history[i].Lat != wantLat {
			t.Fatalf("history[%d].Lat = %v, want %v", i, history[i].Lat, wantLat)
		}
	}
}

func TestHistoryEmptyForUnknownVehicle(t *testing.T) {
	store := NewStore(newTestClient(t), time.Hour)

	history, err := store.History(context.Background(), "bus-404", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history length = %d, want 0", len(history))
	}
}

func TestHistoryTrimmedToRetentionOnAppend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	retention := 30 * 24 * time.Hour
	store := NewStore(rdb, retention)
	ctx := context.Background()

	// A steadily reporting vehicle refreshes the key TTL on every
	// append, so expiry alone never bounds the stream. The trim must.
	mr.SetTime(time.Now().Add(-58 * 24 * time.Hour))
	if _, err := store.Apply(ctx, update("bus-1", time.Now().Add(-58*24*time.Hour), 1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.SetTime(time.Now())
	if _, err := store.Apply(ctx, update("bus-1", time.Now(), 2, 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := store.History(ctx, "bus-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1 (record past retention kept)", len(history))
	}
	if history[0].Lat != 2 {
		t.Fatalf("surviving record lat = %v, want 2", history[0].Lat)
	}
}

func TestHistoryKeyHasRetentionTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	retention := 30 * 24 * time.Hour
	store := NewStore(rdb, retention)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, err := store.Apply(context.Background(), update("bus-1", now, 1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ttl := mr.TTL(historyKey("bus-1")); ttl != retention {
		t.Fatalf("history TTL = %v, want %v", ttl, retention)
	}
}
