package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/dal/postgres"
	"github.com/microshop/orders/internal/service/models/receipt"
)

type PostgresReceiptRepository struct {
	conn postgres.Querier
}

func NewPostgresReceiptRepository(conn postgres.Querier) *PostgresReceiptRepository {
	return &PostgresReceiptRepository{
		conn: conn,
	}
}

// Insert adds a receipt row for a finalized order.
func (r *PostgresReceiptRepository) Insert(ctx context.Context, rec receipt.Receipt) error {
	query, args, err := sq.Insert("order_receipts").
		Columns("order_id", "receipt_url", "created_at").
		Values(rec.OrderID, rec.ReceiptURL, rec.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order receipt: %w", err)
	}

	return nil
}

// GetLatestByOrderID returns the most recent receipt of the order, or nil
// when none exists.
func (r *PostgresReceiptRepository) GetLatestByOrderID(
	ctx context.Context,
	orderID uuid.UUID,
) (*receipt.Receipt, error) {
	query, args, err := sq.Select("id", "order_id", "receipt_url", "created_at").
		From("order_receipts").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var rec receipt.Receipt
	err = r.conn.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.ReceiptURL,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order receipt: %w", err)
	}

	return &rec, nil
}
