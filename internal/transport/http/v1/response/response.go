package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/microshop/orders/internal/clients/products"
	"github.com/microshop/orders/internal/clients/rpc"
	"github.com/microshop/orders/internal/service/models/order"
)

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

// WriteError translates a service error into an HTTP status and JSON body.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, statusFor(err), map[string]string{"message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, products.ErrProductNotFound):
		return http.StatusBadRequest
	case errors.Is(err, rpc.ErrUnavailable):
		return http.StatusBadGateway
	}

	var remote *rpc.RemoteError
	if errors.As(err, &remote) {
		if remote.Status >= 400 && remote.Status < 600 {
			return remote.Status
		}

		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
