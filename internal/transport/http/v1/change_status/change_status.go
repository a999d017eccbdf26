package changestatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/transport/http/v1/response"
)

// service is an interface for the service layer.
type service interface {
	ChangeStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error)
}

type request struct {
	Status string `json:"status"`
}

// ChangeStatus handles the status transition request.
func ChangeStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)

		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for change status", "error", err)

		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	o, err := service.ChangeStatus(r.Context(), id, status)
	if err != nil {
		response.WriteError(w, err)
		slog.Error("Error changing order status", "error", err, "order_id", id)

		return
	}

	response.WriteJSON(w, http.StatusOK, o)
}
