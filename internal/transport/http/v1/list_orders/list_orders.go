package listorders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/transport/http/v1/response"
)

// service is an interface for the service layer.
type service interface {
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) (*order.Page, error)
}

// ListOrders handles the paginated order listing request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := r.URL.Query()

	filter := order.QueryOrdersModel{}

	if statusStr := query.Get("status"); statusStr != "" {
		status, err := order.ParseStatus(statusStr)
		if err != nil {
			response.WriteError(w, err)

			return
		}
		filter.Status = &status
	}

	if pageStr := query.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil {
			filter.Page = page
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	page, err := service.ListOrders(r.Context(), filter)
	if err != nil {
		response.WriteError(w, err)
		slog.Error("Error listing orders", "error", err)

		return
	}

	response.WriteJSON(w, http.StatusOK, page)
}
