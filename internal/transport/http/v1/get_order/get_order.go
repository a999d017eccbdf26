package getorder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/transport/http/v1/response"
)

// service is an interface for the service layer.
type service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// GetOrder handles the point lookup request.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)

		return
	}

	o, err := service.GetOrder(r.Context(), id)
	if err != nil {
		response.WriteError(w, err)
		slog.Error("Error getting order", "error", err, "order_id", id)

		return
	}

	response.WriteJSON(w, http.StatusOK, o)
}
