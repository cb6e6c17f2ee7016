package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PrabinKa/ShipMate/internal/netmon"
	"github.com/PrabinKa/ShipMate/pkg/httputil"
)

// ConnectivityHandler exposes and accepts reachability state. The embedding
// application pushes platform connectivity changes through PUT; the probe
// loop feeds the same monitor independently.
type ConnectivityHandler struct {
	monitor *netmon.Monitor
	logger  *slog.Logger
}

// NewConnectivityHandler creates a new connectivity HTTP handler.
func NewConnectivityHandler(monitor *netmon.Monitor, logger *slog.Logger) *ConnectivityHandler {
	return &ConnectivityHandler{monitor: monitor, logger: logger}
}

// ConnectivityState is the JSON body for both directions.
type ConnectivityState struct {
	Online bool `json:"online"`
}

// Get handles GET /api/v1/connectivity
func (h *ConnectivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: ConnectivityState{Online: h.monitor.Online()},
	})
}

// Put handles PUT /api/v1/connectivity
func (h *ConnectivityHandler) Put(w http.ResponseWriter, r *http.Request) {
	var state ConnectivityState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	h.monitor.Report(state.Online)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: ConnectivityState{Online: h.monitor.Online()},
	})
}
