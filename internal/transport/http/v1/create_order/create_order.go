package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/orderitem"
	"github.com/microshop/orders/internal/transport/http/v1/response"
)

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, items []orderitem.NewItem) (*order.Order, error)
}

type request struct {
	Items []orderitem.NewItem `json:"items"`
}

// CreateOrder handles the order creation request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if len(req.Items) == 0 {
		http.Error(w, "Order must contain at least one item", http.StatusBadRequest)

		return
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			http.Error(w, "Item quantity must be positive", http.StatusBadRequest)

			return
		}
	}

	created, err := service.Create(r.Context(), req.Items)
	if err != nil {
		response.WriteError(w, err)
		slog.Error("Error creating order", "error", err)

		return
	}

	response.WriteJSON(w, http.StatusCreated, created)
}
