package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/reconcile"
	"github.com/PrabinKa/ShipMate/pkg/httputil"
)

// OrderService is the slice of the reconciliation engine the order
// endpoints use.
type OrderService interface {
	CreateOrder(ctx context.Context, draft domain.Draft) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	SweepPending(ctx context.Context) (*reconcile.Report, error)
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// Create handles POST /api/v1/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	order, err := h.service.CreateOrder(r.Context(), draft)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// Sync handles POST /api/v1/orders/sync, the UI's pull-to-refresh path.
func (h *OrderHandler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SweepPending(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if report == nil {
		// A sweep was already running and this trigger was dropped.
		httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
			Data: map[string]string{"status": "sweep already in progress"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
