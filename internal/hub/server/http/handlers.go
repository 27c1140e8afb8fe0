package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/internal/hub/storage"
	"buswatch.io/buswatch/pkg/log"
)

const imageURLExpiry = 15 * time.Minute

type apiHandler struct {
	svc   *service.Service
	media *storage.MediaStore
	log   log.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]string{"reason": reason, "message": message})
}

// statusOf maps core errors to HTTP status codes on the read API.
func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnknownVehicle):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *apiHandler) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(err, "request failed")
	}
	writeError(w, status, core.ReasonOf(err), err.Error())
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New("missing query parameter " + name)
	}
	return strconv.ParseFloat(raw, 64)
}

func (h *apiHandler) nearbyStops(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ReasonInvalidPayload, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ReasonInvalidPayload, err.Error())
		return
	}
	radius, err := queryFloat(r, "radius")
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ReasonInvalidPayload, err.Error())
		return
	}

	stops, err := h.svc.Nearby(r.Context(), lat, lon, radius)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stops": stops})
}

func (h *apiHandler) vehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Vehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *apiHandler) position(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *apiHandler) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, core.ReasonInvalidPayload, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.svc.History(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (h *apiHandler) stop(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stop(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *apiHandler) vehicleImage(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Vehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.presignImage(w, r, v.ImageKey, "vehicle has no image")
}

func (h *apiHandler) stopImage(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stop(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.presignImage(w, r, st.ImageKey, "stop has no image")
}

func (h *apiHandler) presignImage(w http.ResponseWriter, r *http.Request, key, missingMsg string) {
	if h.media == nil {
		writeError(w, http.StatusNotFound, core.ReasonInternal, "no media store configured")
		return
	}
	if key == "" {
		writeError(w, http.StatusNotFound, core.ReasonInternal, missingMsg)
		return
	}

	url, err := h.media.PresignedURL(r.Context(), key, imageURLExpiry)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
