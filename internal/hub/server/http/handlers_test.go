package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/pkg/options"
)

type memCatalog struct{}

func (memCatalog) GetVehicle(_ context.Context, id string) (*model.Vehicle, error) {
	if id != "bus-1" {
		return nil, core.ErrNotFound
	}
	return &model.Vehicle{ID: "bus-1", RouteID: "route-9", Status: model.VehicleStatusActive}, nil
}

func (memCatalog) SetStatus(context.Context, string, model.VehicleStatus) error { return nil }

type memStore struct{}

func (memStore) Apply(context.Context, *model.ValidatedUpdate) (model.Applied, error) {
	return model.Applied{}, nil
}

func (memStore) Snapshot(_ context.Context, vehicleID string) (*model.PositionRecord, error) {
	if vehicleID != "bus-1" {
		return nil, core.ErrNotFound
	}
	return &model.PositionRecord{
		VehicleID: "bus-1", Lat: 37.5, Lon: 127.0,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (memStore) History(_ context.Context, vehicleID string, limit int) ([]model.PositionRecord, error) {
	records := []model.PositionRecord{
		{VehicleID: vehicleID, Lat: 2},
		{VehicleID: vehicleID, Lat: 1},
	}
	if limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

type memStops struct{}

func (memStops) Nearby(context.Context, float64, float64, float64) ([]model.NearbyStop, error) {
	return []model.NearbyStop{
		{Stop: model.Stop{ID: "stop-1", Name: "City Hall"}, DistanceMeters: 120},
	}, nil
}

func (memStops) GetStop(_ context.Context, id string) (*model.Stop, error) {
	if id != "stop-1" {
		return nil, core.ErrNotFound
	}
	return &model.Stop{ID: "stop-1", Name: "City Hall"}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(memCatalog{}, memStore{}, memStops{})
	srv := NewServer(options.NewHttpOptions(), "/ws", http.NotFoundHandler(), svc, nil,
		func(context.Context) error { return nil })
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body of %s failed: %v", path, err)
	}
	return resp, body
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := get(t, ts, path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestMetricsExposed(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestNearbyStops(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/api/v1/stops/nearby?lat=37.5&lon=127.0&radius=500")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var out struct {
		Stops []model.NearbyStop `json:"stops"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(out.Stops) != 1 || out.Stops[0].ID != "stop-1" {
		t.Fatalf("unexpected stops payload: %+v", out.Stops)
	}
}

func TestNearbyStopsParameterValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []string{
		"/api/v1/stops/nearby",
		"/api/v1/stops/nearby?lat=37.5&lon=127.0",
		"/api/v1/stops/nearby?lat=abc&lon=127.0&radius=500",
		"/api/v1/stops/nearby?lat=37.5&lon=127.0&radius=-5",
		"/api/v1/stops/nearby?lat=95&lon=127.0&radius=500",
	}

	for _, path := range tests {
		resp, _ := get(t, ts, path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestVehiclePosition(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/api/v1/vehicles/bus-1/position")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var rec model.PositionRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if rec.VehicleID != "bus-1" || rec.Lat != 37.5 {
		t.Fatalf("unexpected position payload: %+v", rec)
	}
}

func TestVehiclePositionNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts, "/api/v1/vehicles/bus-404/position")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestVehicleHistoryLimit(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/api/v1/vehicles/bus-1/history?limit=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var out struct {
		History []model.PositionRecord `json:"history"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(out.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(out.History))
	}

	resp, _ = get(t, ts, "/api/v1/vehicles/bus-1/history?limit=0")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d, want 400", resp.StatusCode)
	}
}

func TestStop(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/api/v1/stops/stop-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var st model.Stop
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if st.ID != "stop-1" || st.Name != "City Hall" {
		t.Fatalf("unexpected stop payload: %+v", st)
	}

	resp, _ = get(t, ts, "/api/v1/stops/stop-404")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown stop status = %d, want 404", resp.StatusCode)
	}
}

func TestVehicleImageWithoutMediaStore(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts, "/api/v1/vehicles/bus-1/image")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no media store is configured", resp.StatusCode)
	}

	resp, _ = get(t, ts, "/api/v1/stops/stop-1/image")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stop image status = %d, want 404 when no media store is configured", resp.StatusCode)
	}
}
