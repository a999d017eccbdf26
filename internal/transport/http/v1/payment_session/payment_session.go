package paymentsession

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/payment"
	"github.com/microshop/orders/internal/transport/http/v1/response"
)

// service is an interface for the service layer.
type service interface {
	CreatePaymentSession(ctx context.Context, id uuid.UUID) (*payment.Session, error)
}

// CreatePaymentSession handles the payment session request.
func CreatePaymentSession(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)

		return
	}

	session, err := service.CreatePaymentSession(r.Context(), id)
	if err != nil {
		response.WriteError(w, err)
		slog.Error("Error creating payment session", "error", err, "order_id", id)

		return
	}

	response.WriteJSON(w, http.StatusCreated, session)
}
