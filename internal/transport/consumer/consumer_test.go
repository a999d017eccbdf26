package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/payment"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	mu      sync.Mutex
	err     error
	ctxErrs []error
	events  []payment.SucceededEvent
}

func (s *stubService) MarkPaid(ctx context.Context, evt payment.SucceededEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.events = append(s.events, evt)
	return s.err
}

type stubAcknowledger struct {
	mu       sync.Mutex
	acks     []uint64
	nacks    []uint64
	requeues []bool
}

func (a *stubAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *stubAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, tag)
	a.requeues = append(a.requeues, requeue)
	return nil
}

func (a *stubAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func newTestConsumer(svc *stubService) *Consumer {
	return &Consumer{
		service: svc,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func delivery(t *testing.T, ack *stubAcknowledger, tag uint64, evt payment.SucceededEvent) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(evt)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestConsume_BadMessageDoesNotStopTheConsumer(t *testing.T) {
	svc := &stubService{}
	c := newTestConsumer(svc)
	ack := &stubAcknowledger{}

	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("not json")}
	msgs <- delivery(t, ack, 2, payment.SucceededEvent{
		OrderID:    uuid.New(),
		ReceiptURL: "https://receipts.example/r1",
		ChargeID:   "ch_123",
	})
	close(msgs)

	c.consume(context.Background(), msgs)

	// The malformed delivery is dropped, the next one is still finalized
	// with a live context.
	require.Len(t, svc.events, 1)
	require.Len(t, svc.ctxErrs, 1)
	assert.NoError(t, svc.ctxErrs[0])

	assert.Equal(t, []uint64{2}, ack.acks)
	require.Equal(t, []uint64{1}, ack.nacks)
	assert.False(t, ack.requeues[0])
}

func TestConsume_UnknownOrderIsDroppedNotRequeued(t *testing.T) {
	svc := &stubService{err: order.ErrNotFound}
	c := newTestConsumer(svc)
	ack := &stubAcknowledger{}

	msgs := make(chan amqp.Delivery, 1)
	msgs <- delivery(t, ack, 1, payment.SucceededEvent{OrderID: uuid.New(), ChargeID: "ch_1"})
	close(msgs)

	c.consume(context.Background(), msgs)

	require.Len(t, svc.events, 1)
	assert.Empty(t, ack.acks)
	require.Equal(t, []uint64{1}, ack.nacks)
	assert.False(t, ack.requeues[0])
}

func TestConsume_TransientErrorIsRequeued(t *testing.T) {
	svc := &stubService{err: errors.New("connection refused")}
	c := newTestConsumer(svc)
	ack := &stubAcknowledger{}

	msgs := make(chan amqp.Delivery, 1)
	msgs <- delivery(t, ack, 1, payment.SucceededEvent{OrderID: uuid.New(), ChargeID: "ch_1"})
	close(msgs)

	c.consume(context.Background(), msgs)

	require.Len(t, svc.events, 1)
	assert.Empty(t, ack.acks)
	require.Equal(t, []uint64{1}, ack.nacks)
	assert.True(t, ack.requeues[0])
}
