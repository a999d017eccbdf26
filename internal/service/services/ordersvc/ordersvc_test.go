package ordersvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/clients/products"
	"github.com/microshop/orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/microshop/orders/internal/dal/interfaces/iorderrepo"
	"github.com/microshop/orders/internal/dal/interfaces/ioutboxrepo"
	"github.com/microshop/orders/internal/dal/interfaces/ireceiptrepo"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/orderitem"
	"github.com/microshop/orders/internal/service/models/outbox"
	"github.com/microshop/orders/internal/service/models/payment"
	"github.com/microshop/orders/internal/service/models/product"
	"github.com/microshop/orders/internal/service/models/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(ctx context.Context, ids []int64) ([]product.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateSession(
	ctx context.Context,
	req payment.SessionRequest,
) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

// memStore is an in-memory stand-in for the Postgres unit of work.
type memStore struct {
	mu           sync.Mutex
	orders       map[uuid.UUID]order.Order
	orderIDs     []uuid.UUID
	items        []orderitem.OrderItem
	receipts     []receipt.Receipt
	outbox       []outbox.OutboxMessage
	nextItemID   int64
	statusWrites int
}

func newMemStore() *memStore {
	return &memStore{
		orders: make(map[uuid.UUID]order.Order),
	}
}

func (s *memStore) uowFactory() func() unitOfWork {
	return func() unitOfWork { return &memUOW{store: s} }
}

type memUOW struct {
	store *memStore
}

func (u *memUOW) Begin(ctx context.Context) error { return nil }
func (u *memUOW) Commit() error                   { return nil }
func (u *memUOW) Rollback() error                 { return nil }

func (u *memUOW) OrderRepository() iorderrepo.IOrderRepository {
	return u.store
}

func (u *memUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.store
}

func (u *memUOW) ReceiptRepository() ireceiptrepo.IReceiptRepository {
	return &memReceiptRepo{store: u.store}
}

func (u *memUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &memOutboxRepo{store: u.store}
}

func (s *memStore) Insert(ctx context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	s.orderIDs = append(s.orderIDs, o.ID)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.OrderItems = []orderitem.OrderItem{}
	return &o, nil
}

func (s *memStore) Count(ctx context.Context, filter *order.QueryOrdersModel) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, id := range s.orderIDs {
		if filter.Status == nil || s.orders[id].Status == *filter.Status {
			total++
		}
	}
	return total, nil
}

func (s *memStore) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matching []order.Order
	for _, id := range s.orderIDs {
		o := s.orders[id]
		if filter.Status == nil || o.Status == *filter.Status {
			matching = append(matching, o)
		}
	}
	offset := filter.Offset()
	if offset >= len(matching) {
		return []order.Order{}, nil
	}
	end := offset + filter.Limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], nil
}

func (s *memStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status order.Status,
	updatedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	s.orders[id] = o
	s.statusWrites++
	return nil
}

func (s *memStore) MarkPaid(
	ctx context.Context,
	id uuid.UUID,
	chargeID string,
	paidAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = order.StatusPaid
	o.Paid = true
	o.PaidAt = &paidAt
	o.ChargeID = &chargeID
	o.UpdatedAt = paidAt
	s.orders[id] = o
	return nil
}

func (s *memStore) BulkInsert(
	ctx context.Context,
	items []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]orderitem.OrderItem, 0, len(items))
	for _, item := range items {
		s.nextItemID++
		item.ID = s.nextItemID
		s.items = append(s.items, item)
		result = append(result, item)
	}
	return result, nil
}

func (s *memStore) QueryByOrderIDs(
	ctx context.Context,
	orderIDs []uuid.UUID,
) ([]orderitem.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []orderitem.OrderItem
	for _, item := range s.items {
		for _, id := range orderIDs {
			if item.OrderID == id {
				result = append(result, item)
			}
		}
	}
	return result, nil
}

type memReceiptRepo struct {
	store *memStore
}

func (r *memReceiptRepo) Insert(ctx context.Context, rec receipt.Receipt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec.ID = int64(len(r.store.receipts) + 1)
	r.store.receipts = append(r.store.receipts, rec)
	return nil
}

func (r *memReceiptRepo) GetLatestByOrderID(
	ctx context.Context,
	orderID uuid.UUID,
) (*receipt.Receipt, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *receipt.Receipt
	for i := range r.store.receipts {
		if r.store.receipts[i].OrderID == orderID {
			rec := r.store.receipts[i]
			latest = &rec
		}
	}
	return latest, nil
}

type memOutboxRepo struct {
	store *memStore
}

func (r *memOutboxRepo) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.outbox = append(r.store.outbox, msg)
	return nil
}

func (r *memOutboxRepo) GetPendingMessages(
	ctx context.Context,
	limit int,
) ([]outbox.OutboxMessage, error) {
	return nil, nil
}

func (r *memOutboxRepo) Delete(ctx context.Context, id int64) error { return nil }

func (r *memOutboxRepo) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	return nil
}

func newTestService(store *memStore, validator *mockValidator, gateway *mockGateway) *OrderService {
	return MustNewOrderService(
		WithUnitOfWorkFactory(store.uowFactory()),
		WithProductsClient(validator),
		WithPaymentsClient(gateway),
	)
}

func TestCreate_SnapshotsPricesAndTotals(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	validator.On("Validate", mock.Anything, []int64{1, 2}).Return([]product.Product{
		{ID: 1, Name: "A", Price: 10},
		{ID: 2, Name: "B", Price: 5},
	}, nil)

	created, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, 25.0, created.TotalAmount)
	assert.Equal(t, 3, created.TotalItems)
	assert.Equal(t, order.StatusPending, created.Status)
	require.Len(t, created.OrderItems, 2)
	assert.Equal(t, 10.0, created.OrderItems[0].Price)
	assert.Equal(t, "A", created.OrderItems[0].Name)
	assert.Equal(t, 5.0, created.OrderItems[1].Price)
	assert.Equal(t, "B", created.OrderItems[1].Name)

	// The snapshot is persisted, the name is not
	require.Len(t, store.items, 2)
	assert.Equal(t, 10.0, store.items[0].Price)
	assert.Empty(t, store.items[0].Name)

	validator.AssertExpectations(t)
}

func TestCreate_DuplicateProductLinesStayDistinct(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	// Ids are deduplicated before the remote call
	validator.On("Validate", mock.Anything, []int64{7}).Return([]product.Product{
		{ID: 7, Name: "Widget", Price: 3},
		{ID: 7, Name: "Widget v2", Price: 99}, // duplicate record, first one wins
	}, nil)

	created, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 7, Quantity: 1},
		{ProductID: 7, Quantity: 4},
	})

	require.NoError(t, err)
	require.Len(t, created.OrderItems, 2)
	assert.Equal(t, 15.0, created.TotalAmount)
	assert.Equal(t, 5, created.TotalItems)
	assert.Equal(t, 3.0, created.OrderItems[0].Price)
	assert.Equal(t, 3.0, created.OrderItems[1].Price)
	assert.Equal(t, "Widget", created.OrderItems[0].Name)
}

func TestCreate_ValidationFailureWritesNothing(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	validator.On("Validate", mock.Anything, mock.Anything).
		Return(nil, errors.New("products unreachable"))

	_, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 1},
	})

	require.Error(t, err)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
	assert.Empty(t, store.outbox)
}

func TestCreate_UnknownProductRejectsOrder(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	// Product 2 is silently dropped by the remote service
	validator.On("Validate", mock.Anything, []int64{1, 2}).Return([]product.Product{
		{ID: 1, Name: "A", Price: 10},
	}, nil)

	_, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	})

	require.ErrorIs(t, err, products.ErrProductNotFound)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
}

func TestCreate_EnqueuesOrderCreatedOutboxMessage(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	validator.On("Validate", mock.Anything, mock.Anything).Return([]product.Product{
		{ID: 1, Name: "A", Price: 10},
	}, nil)

	created, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 1},
	})

	require.NoError(t, err)
	require.Len(t, store.outbox, 1)
	assert.Equal(t, "application/json", store.outbox[0].ContentType)
	assert.Contains(t, string(store.outbox[0].Payload), created.ID.String())
}

func TestGetOrder_NotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	_, err := svc.GetOrder(context.Background(), uuid.New())

	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestGetOrder_DecoratesItemsWithFreshNames(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	validator.On("Validate", mock.Anything, []int64{1}).Return([]product.Product{
		{ID: 1, Name: "A", Price: 10},
	}, nil).Once()

	created, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 2},
	})
	require.NoError(t, err)

	// The product was renamed since the order was created
	validator.On("Validate", mock.Anything, []int64{1}).Return([]product.Product{
		{ID: 1, Name: "A (renamed)", Price: 42},
	}, nil).Once()

	got, err := svc.GetOrder(context.Background(), created.ID)

	require.NoError(t, err)
	require.Len(t, got.OrderItems, 1)
	assert.Equal(t, "A (renamed)", got.OrderItems[0].Name)
	// The price stays the creation-time snapshot
	assert.Equal(t, 10.0, got.OrderItems[0].Price)
	assert.Equal(t, 20.0, got.TotalAmount)
}

func TestGetOrder_UnresolvableProductFails(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	validator.On("Validate", mock.Anything, []int64{1}).Return([]product.Product{
		{ID: 1, Name: "A", Price: 10},
	}, nil).Once()

	created, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 1},
	})
	require.NoError(t, err)

	// The product has since been removed from the catalog
	validator.On("Validate", mock.Anything, []int64{1}).Return([]product.Product{}, nil).Once()

	_, err = svc.GetOrder(context.Background(), created.ID)

	require.ErrorIs(t, err, products.ErrProductNotFound)
}

func TestGetOrder_PaidOrderCarriesLatestReceipt(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	id := uuid.New()
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     id,
		Status: order.StatusPending,
	}))

	require.NoError(t, svc.MarkPaid(context.Background(), payment.SucceededEvent{
		OrderID:    id,
		ReceiptURL: "https://receipts.example/r1",
		ChargeID:   "ch_123",
	}))
	require.NoError(t, svc.MarkPaid(context.Background(), payment.SucceededEvent{
		OrderID:    id,
		ReceiptURL: "https://receipts.example/r2",
		ChargeID:   "ch_123",
	}))

	got, err := svc.GetOrder(context.Background(), id)

	require.NoError(t, err)
	assert.True(t, got.Paid)
	require.NotNil(t, got.Receipt)
	assert.Equal(t, "https://receipts.example/r2", got.Receipt.ReceiptURL)
}

func TestListOrders_Pagination(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Insert(context.Background(), order.Order{
			ID:     uuid.New(),
			Status: order.StatusPending,
		}))
	}

	page, err := svc.ListOrders(context.Background(), order.QueryOrdersModel{Page: 3, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Meta.Total)
	assert.Equal(t, 3, page.Meta.Page)
	assert.Equal(t, int64(3), page.Meta.LastPage)
	assert.Len(t, page.Data, 5)
}

func TestListOrders_StatusFilter(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(context.Background(), order.Order{
			ID:     uuid.New(),
			Status: order.StatusPending,
		}))
	}
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     uuid.New(),
		Status: order.StatusDelivered,
	}))

	status := order.StatusDelivered
	page, err := svc.ListOrders(context.Background(), order.QueryOrdersModel{
		Status: &status,
		Page:   1,
		Limit:  10,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Meta.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, order.StatusDelivered, page.Data[0].Status)
}

func TestChangeStatus_SameStatusIsNoOp(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	id := uuid.New()
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     id,
		Status: order.StatusPending,
	}))

	got, err := svc.ChangeStatus(context.Background(), id, order.StatusPending)

	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Zero(t, store.statusWrites)
}

func TestChangeStatus_PersistsNewStatus(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	svc := newTestService(store, validator, new(mockGateway))

	id := uuid.New()
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     id,
		Status: order.StatusPending,
	}))

	got, err := svc.ChangeStatus(context.Background(), id, order.StatusDelivered)

	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, got.Status)
	assert.Equal(t, 1, store.statusWrites)
	assert.Equal(t, order.StatusDelivered, store.orders[id].Status)
	// The returned timestamp is the persisted one
	assert.Equal(t, store.orders[id].UpdatedAt, got.UpdatedAt)
}

func TestChangeStatus_PolicyCanReject(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)

	rejectAll := func(from, to order.Status) error {
		return errors.New("transitions disabled")
	}
	svc := MustNewOrderService(
		WithUnitOfWorkFactory(store.uowFactory()),
		WithProductsClient(validator),
		WithTransitionPolicy(rejectAll),
	)

	id := uuid.New()
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     id,
		Status: order.StatusPaid,
	}))

	_, err := svc.ChangeStatus(context.Background(), id, order.StatusCancelled)

	require.Error(t, err)
	assert.Zero(t, store.statusWrites)
	assert.Equal(t, order.StatusPaid, store.orders[id].Status)
}

func TestChangeStatus_NotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	_, err := svc.ChangeStatus(context.Background(), uuid.New(), order.StatusDelivered)

	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCreatePaymentSession_BuildsRequestFromOrder(t *testing.T) {
	store := newMemStore()
	validator := new(mockValidator)
	gateway := new(mockGateway)
	svc := newTestService(store, validator, gateway)

	validator.On("Validate", mock.Anything, []int64{1}).Return([]product.Product{
		{ID: 1, Name: "A", Price: 10},
	}, nil)

	created, err := svc.Create(context.Background(), []orderitem.NewItem{
		{ProductID: 1, Quantity: 2},
	})
	require.NoError(t, err)

	expected := payment.SessionRequest{
		OrderID:  created.ID.String(),
		Currency: "usd",
		Items: []payment.SessionItem{
			{Name: "A", Price: 10, Quantity: 2},
		},
	}
	gateway.On("CreateSession", mock.Anything, expected).Return(&payment.Session{
		URL: "https://pay.example/session",
	}, nil)

	session, err := svc.CreatePaymentSession(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/session", session.URL)
	gateway.AssertExpectations(t)
}

func TestMarkPaid_FinalizesOrderAndCreatesReceipt(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	id := uuid.New()
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     id,
		Status: order.StatusPending,
	}))

	err := svc.MarkPaid(context.Background(), payment.SucceededEvent{
		OrderID:    id,
		ReceiptURL: "https://receipts.example/r1",
		ChargeID:   "ch_123",
	})

	require.NoError(t, err)
	got := store.orders[id]
	assert.Equal(t, order.StatusPaid, got.Status)
	assert.True(t, got.Paid)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.ChargeID)
	assert.Equal(t, "ch_123", *got.ChargeID)
	require.Len(t, store.receipts, 1)
	assert.Equal(t, "https://receipts.example/r1", store.receipts[0].ReceiptURL)
}

// Finalization is deliberately not idempotent: re-delivery of the same event
// appends a second receipt and re-stamps paid_at. Known gap; this test pins
// the behavior so a future idempotency guard shows up as an explicit change.
func TestMarkPaid_RedeliveryAppendsSecondReceipt(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	id := uuid.New()
	require.NoError(t, store.Insert(context.Background(), order.Order{
		ID:     id,
		Status: order.StatusPending,
	}))

	evt := payment.SucceededEvent{
		OrderID:    id,
		ReceiptURL: "https://receipts.example/r1",
		ChargeID:   "ch_123",
	}

	require.NoError(t, svc.MarkPaid(context.Background(), evt))
	firstPaidAt := *store.orders[id].PaidAt

	time.Sleep(time.Millisecond)
	require.NoError(t, svc.MarkPaid(context.Background(), evt))

	assert.Len(t, store.receipts, 2)
	assert.True(t, store.orders[id].PaidAt.After(firstPaidAt))
}

func TestMarkPaid_UnknownOrder(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, new(mockValidator), new(mockGateway))

	err := svc.MarkPaid(context.Background(), payment.SucceededEvent{
		OrderID:  uuid.New(),
		ChargeID: "ch_123",
	})

	require.ErrorIs(t, err, order.ErrNotFound)
	assert.Empty(t, store.receipts)
}
