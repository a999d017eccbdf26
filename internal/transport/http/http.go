package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/orderitem"
	"github.com/microshop/orders/internal/service/models/payment"
	changestatus "github.com/microshop/orders/internal/transport/http/v1/change_status"
	createorder "github.com/microshop/orders/internal/transport/http/v1/create_order"
	getorder "github.com/microshop/orders/internal/transport/http/v1/get_order"
	listorders "github.com/microshop/orders/internal/transport/http/v1/list_orders"
	paymentsession "github.com/microshop/orders/internal/transport/http/v1/payment_session"
	"github.com/microshop/orders/pkg/http/middleware/trace"
	"github.com/microshop/orders/pkg/logger"
	"github.com/spf13/viper"
)

type service interface {
	Create(ctx context.Context, items []orderitem.NewItem) (*order.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) (*order.Page, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error)
	CreatePaymentSession(ctx context.Context, id uuid.UUID) (*payment.Session, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Patch("/orders/{id}", h.changeStatus)
		r.Post("/orders/{id}/payment-session", h.createPaymentSession)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) changeStatus(w http.ResponseWriter, r *http.Request) {
	changestatus.ChangeStatus(w, r, h.service)
}

func (h *HTTPTransport) createPaymentSession(w http.ResponseWriter, r *http.Request) {
	paymentsession.CreatePaymentSession(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
