package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microshop/orders/internal/clients/payments"
	"github.com/microshop/orders/internal/clients/products"
	"github.com/microshop/orders/internal/dal/natsconn"
	"github.com/microshop/orders/internal/dal/postgres"
	"github.com/microshop/orders/internal/dal/rabbitmq"
	outboxrepo "github.com/microshop/orders/internal/dal/repositories/outbox/postgres"
	"github.com/microshop/orders/internal/otel"
	"github.com/microshop/orders/internal/service/services/ordersvc"
	"github.com/microshop/orders/internal/transport/consumer"
	httptransport "github.com/microshop/orders/internal/transport/http"
	outboxworker "github.com/microshop/orders/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	paymentEvents  *consumer.Consumer
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	rabbitMqClient *rabbitmq.Client
	natsClient     *natsconn.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()
	natsClient := natsconn.MustNewClient()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithProductsClient(products.NewClient(natsClient)),
		ordersvc.WithPaymentsClient(payments.NewClient(natsClient)),
	)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	paymentEvents := consumer.NewConsumer(rabbitMqClient, orderSvc)

	outboxWorker := outboxworker.NewWorker(
		outboxrepo.NewOutboxRepository(postgresClient.DB()),
		rabbitMqClient,
	)

	return &App{
		orderSvc:       orderSvc,
		transport:      transport,
		paymentEvents:  paymentEvents,
		outboxWorker:   outboxWorker,
		postgresClient: postgresClient,
		rabbitMqClient: rabbitMqClient,
		natsClient:     natsClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting payment consumer")
		if err := a.paymentEvents.Run(ctx); err != nil {
			slog.Error("Payment consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops all application components in order: HTTP server,
// outbox worker, consumer, then the connections.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	if err := a.paymentEvents.Shutdown(); err != nil {
		slog.Error("Payment consumer shutdown error", "error", err)
	} else {
		slog.Info("Payment consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.natsClient.Close(); err != nil {
		slog.Error("NATS connection close error", "error", err)
	} else {
		slog.Info("NATS connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider close error", "error", err)
	} else {
		slog.Info("Otel trace provider closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
