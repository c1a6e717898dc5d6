package api

import (
	"encoding/json"
	"net/http"
)

// Tracker pauses and resumes tracking.
type Tracker interface {
	Tracking() bool
	SetTracking(enabled bool)
}

// TrackingHandler reads and toggles tracking.
type TrackingHandler struct {
	tracker Tracker
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(t Tracker) *TrackingHandler {
	return &TrackingHandler{tracker: t}
}

type trackingBody struct {
	Tracking *bool `json:"tracking"`
}

// ServeHTTP handles GET and PUT /api/tracking.
func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req trackingBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Tracking == nil {
			writeError(w, http.StatusBadRequest, "tracking is required")
			return
		}
		h.tracker.SetTracking(*req.Tracking)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	enabled := h.tracker.Tracking()
	writeJSON(w, http.StatusOK, trackingBody{Tracking: &enabled})
}
