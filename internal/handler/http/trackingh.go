package http

import (
	"log/slog"
	"net/http"

	"github.com/PrabinKa/ShipMate/internal/tracking"
	"github.com/PrabinKa/ShipMate/pkg/httputil"
)

// TrackingHandler exposes the courier's last known location.
type TrackingHandler struct {
	tracker *tracking.Tracker
	logger  *slog.Logger
}

// NewTrackingHandler creates a new tracking HTTP handler.
func NewTrackingHandler(tracker *tracking.Tracker, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: tracker, logger: logger}
}

// Last handles GET /api/v1/tracking/last
func (h *TrackingHandler) Last(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.tracker.Last()
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "no location recorded yet"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: loc})
}
