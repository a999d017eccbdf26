package uow

import (
	"context"
	"database/sql"

	"github.com/microshop/orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/microshop/orders/internal/dal/interfaces/iorderrepo"
	"github.com/microshop/orders/internal/dal/interfaces/ioutboxrepo"
	"github.com/microshop/orders/internal/dal/interfaces/ireceiptrepo"
	"github.com/microshop/orders/internal/dal/postgres"
	orderrepo "github.com/microshop/orders/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/microshop/orders/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/microshop/orders/internal/dal/repositories/outbox/postgres"
	receiptrepo "github.com/microshop/orders/internal/dal/repositories/receipt/postgres"
)

type unitOfWork struct {
	db          *sql.DB
	tx          *sql.Tx
	orderRepo   iorderrepo.IOrderRepository
	itemRepo    iorderitemrepo.IOrderItemRepository
	receiptRepo ireceiptrepo.IReceiptRepository
	outboxRepo  ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	db := client.DB()

	return &unitOfWork{
		db:          db,
		orderRepo:   orderrepo.NewPostgresOrderRepository(db),
		itemRepo:    orderitemrepo.NewPostgresOrderItemRepository(db),
		receiptRepo: receiptrepo.NewPostgresReceiptRepository(db),
		outboxRepo:  outboxrepo.NewOutboxRepository(db),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.itemRepo
}

func (u *unitOfWork) ReceiptRepository() ireceiptrepo.IReceiptRepository {
	return u.receiptRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// Begin opens a transaction and rebinds all repositories onto it.
func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.itemRepo = orderitemrepo.NewPostgresOrderItemRepository(tx)
	u.receiptRepo = receiptrepo.NewPostgresReceiptRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback()
}
