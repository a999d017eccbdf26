package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/microshop/orders/internal/dal/interfaces/iorderrepo"
	"github.com/microshop/orders/internal/dal/interfaces/ioutboxrepo"
	"github.com/microshop/orders/internal/dal/interfaces/ireceiptrepo"
	"github.com/microshop/orders/internal/dal/postgres"
	"github.com/microshop/orders/internal/dal/uow"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/orderitem"
	"github.com/microshop/orders/internal/service/models/payment"
	"github.com/microshop/orders/internal/service/models/product"
	"github.com/microshop/orders/internal/service/models/receipt"
	"github.com/spf13/viper"

	clientproducts "github.com/microshop/orders/internal/clients/products"
)

const paymentCurrency = "usd"

// OrderService orchestrates the order lifecycle: creation with remote price
// reconciliation, retrieval, status transitions, payment sessions and
// webhook-driven payment finalization.
type OrderService struct {
	pgClient   *postgres.Client
	newUOW     func() unitOfWork
	products   productValidator
	payments   paymentGateway
	transition order.TransitionPolicy
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	ReceiptRepository() ireceiptrepo.IReceiptRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// productValidator resolves product ids to their current name and price.
type productValidator interface {
	Validate(ctx context.Context, ids []int64) ([]product.Product, error)
}

// paymentGateway requests checkout sessions from the payment service.
type paymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		transition: order.AllowAnyTransition,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit-of-work factory. Used by tests to
// substitute an in-memory store.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// WithProductsClient sets the product validation client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductsClient(client productValidator) option {
	return func(s *OrderService) {
		s.products = client
	}
}

// WithPaymentsClient sets the payment client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentsClient(client paymentGateway) option {
	return func(s *OrderService) {
		s.payments = client
	}
}

// WithTransitionPolicy overrides the status transition policy.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTransitionPolicy(policy order.TransitionPolicy) option {
	return func(s *OrderService) {
		s.transition = policy
	}
}

// Create builds an order from the requested lines. Prices are fetched from
// the product service once and snapshotted into the order items; the order
// and its items commit in a single transaction together with an
// order.created outbox message. Nothing is persisted if validation fails or
// if any requested product id is missing from the validation response.
func (s *OrderService) Create(
	ctx context.Context,
	items []orderitem.NewItem,
) (*order.Order, error) {
	ids := distinctProductIDs(items)

	validated, err := s.products.Validate(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := product.Index(validated)

	now := time.Now()
	o := order.Order{
		ID:        uuid.New(),
		Status:    order.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	orderItems := make([]orderitem.OrderItem, 0, len(items))
	for _, item := range items {
		p, ok := index[item.ProductID]
		if !ok {
			return nil, fmt.Errorf(
				"product %d is not in the validation response: %w",
				item.ProductID, clientproducts.ErrProductNotFound,
			)
		}

		o.TotalAmount += p.Price * float64(item.Quantity)
		o.TotalItems += item.Quantity
		orderItems = append(orderItems, orderitem.OrderItem{
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Price:     p.Price,
			Quantity:  item.Quantity,
		})
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback() }()

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return nil, err
	}

	inserted, err := work.OrderItemRepository().BulkInsert(ctx, orderItems)
	if err != nil {
		return nil, err
	}
	o.OrderItems = inserted

	if err := s.enqueueOrderCreated(ctx, work.OutboxRepository(), o); err != nil {
		return nil, err
	}

	if err := work.Commit(); err != nil {
		return nil, err
	}

	decorateItems(o.OrderItems, index)

	return &o, nil
}

// GetOrder returns the order with its items, each decorated with the product
// name freshly resolved from the product service. Paid orders additionally
// carry their latest receipt.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	if o.Paid {
		rec, err := work.ReceiptRepository().GetLatestByOrderID(ctx, id)
		if err != nil {
			return nil, err
		}
		o.Receipt = rec
	}

	items, err := work.OrderItemRepository().QueryByOrderIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.OrderItems = items

	if len(items) == 0 {
		return o, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	validated, err := s.products.Validate(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	index := product.Index(validated)

	for _, item := range o.OrderItems {
		if _, ok := index[item.ProductID]; !ok {
			return nil, fmt.Errorf(
				"product %d of order %s is not in the validation response: %w",
				item.ProductID, id, clientproducts.ErrProductNotFound,
			)
		}
	}
	decorateItems(o.OrderItems, index)

	return o, nil
}

// ListOrders returns one page of orders matching the optional status filter.
// Items and product names are not resolved for listings.
func (s *OrderService) ListOrders(
	ctx context.Context,
	filter order.QueryOrdersModel,
) (*order.Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	work := s.newUOW()

	total, err := work.OrderRepository().Count(ctx, &filter)
	if err != nil {
		return nil, err
	}

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []order.Order{}
	}

	return &order.Page{
		Data: orders,
		Meta: order.Meta{
			Total:    total,
			Page:     filter.Page,
			LastPage: (total + int64(filter.Limit) - 1) / int64(filter.Limit),
		},
	}, nil
}

// ChangeStatus moves the order to the given status. When the order already
// carries that status the call is an idempotent no-op: the order is returned
// unchanged and nothing is written.
func (s *OrderService) ChangeStatus(
	ctx context.Context,
	id uuid.UUID,
	status order.Status,
) (*order.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.Status == status {
		return o, nil
	}

	if err := s.transition(o.Status, status); err != nil {
		return nil, fmt.Errorf("transition %s -> %s rejected: %w", o.Status, status, err)
	}

	// The same timestamp lands in the row and in the returned order.
	now := time.Now()

	work := s.newUOW()
	if err := work.OrderRepository().UpdateStatus(ctx, id, status, now); err != nil {
		return nil, err
	}

	o.Status = status
	o.UpdatedAt = now

	return o, nil
}

// CreatePaymentSession asks the payment service for a checkout session
// covering the order's lines. A pure request; no local state changes.
func (s *OrderService) CreatePaymentSession(
	ctx context.Context,
	id uuid.UUID,
) (*payment.Session, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	sessionItems := make([]payment.SessionItem, 0, len(o.OrderItems))
	for _, item := range o.OrderItems {
		sessionItems = append(sessionItems, payment.SessionItem{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	session, err := s.payments.CreateSession(ctx, payment.SessionRequest{
		OrderID:  o.ID.String(),
		Currency: paymentCurrency,
		Items:    sessionItems,
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// MarkPaid finalizes an order after a payment-succeeded event: status PAID,
// paid flag, paid_at stamp, charge id, plus the linked receipt row, all in
// one transaction. The operation is not idempotent: a re-delivered event
// appends a second receipt and re-stamps paid_at. Known gap, kept to match
// the documented behavior of the system this service replaces.
func (s *OrderService) MarkPaid(ctx context.Context, evt payment.SucceededEvent) error {
	now := time.Now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer func() { _ = work.Rollback() }()

	if err := work.OrderRepository().MarkPaid(ctx, evt.OrderID, evt.ChargeID, now); err != nil {
		return fmt.Errorf("failed to finalize order %s: %w", evt.OrderID, err)
	}

	err := work.ReceiptRepository().Insert(ctx, receipt.Receipt{
		OrderID:    evt.OrderID,
		ReceiptURL: evt.ReceiptURL,
		CreatedAt:  now,
	})
	if err != nil {
		return err
	}

	return work.Commit()
}

// enqueueOrderCreated writes the order.created notification into the outbox
// inside the creation transaction.
func (s *OrderService) enqueueOrderCreated(
	ctx context.Context,
	repo ioutboxrepo.IOutboxRepository,
	o order.Order,
) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order.created payload: %w", err)
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	now := time.Now()

	return repo.Insert(ctx, outboxMessage(o, payload, maxRetries, now))
}

func distinctProductIDs(items []orderitem.NewItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	return dedupe(ids)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	return result
}

func decorateItems(items []orderitem.OrderItem, index map[int64]product.Product) {
	for i := range items {
		if p, ok := index[items[i].ProductID]; ok {
			items[i].Name = p.Name
		}
	}
}
