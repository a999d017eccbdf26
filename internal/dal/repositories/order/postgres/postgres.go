package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/dal/postgres"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/orderitem"
)

var orderColumns = []string{
	"id",
	"total_amount",
	"total_items",
	"status",
	"paid",
	"paid_at",
	"charge_id",
	"created_at",
	"updated_at",
}

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id          uuid.UUID      `db:"id"`
	TotalAmount float64        `db:"total_amount"`
	TotalItems  int            `db:"total_items"`
	Status      string         `db:"status"`
	Paid        bool           `db:"paid"`
	PaidAt      sql.NullTime   `db:"paid_at"`
	ChargeId    sql.NullString `db:"charge_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	model := &order.Order{
		ID:          o.Id,
		TotalAmount: o.TotalAmount,
		TotalItems:  o.TotalItems,
		Status:      status,
		Paid:        o.Paid,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		OrderItems:  []orderitem.OrderItem{}, // Will be populated separately
	}
	if o.PaidAt.Valid {
		paidAt := o.PaidAt.Time
		model.PaidAt = &paidAt
	}
	if o.ChargeId.Valid {
		chargeID := o.ChargeId.String
		model.ChargeID = &chargeID
	}

	return model, nil
}

type PostgresOrderRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderRepository(conn postgres.Querier) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert persists a new order row.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) error {
	query, args, err := sq.Insert("orders").
		Columns(
			"id",
			"total_amount",
			"total_items",
			"status",
			"paid",
			"created_at",
			"updated_at",
		).
		Values(
			o.ID,
			o.TotalAmount,
			o.TotalItems,
			o.Status,
			o.Paid,
			o.CreatedAt,
			o.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID returns the order row or order.ErrNotFound.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	err = r.conn.QueryRowContext(ctx, query, args...).Scan(
		&dal.Id,
		&dal.TotalAmount,
		&dal.TotalItems,
		&dal.Status,
		&dal.Paid,
		&dal.PaidAt,
		&dal.ChargeId,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return dal.ToModel()
}

// Count returns the number of orders matching the filter.
func (r *PostgresOrderRepository) Count(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) (int64, error) {
	builder := sq.Select("COUNT(*)").From("orders")
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return total, nil
}

// Query returns one page of orders matching the filter, without items.
func (r *PostgresOrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).From("orders")
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset()))
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		err := rows.Scan(
			&dal.Id,
			&dal.TotalAmount,
			&dal.TotalItems,
			&dal.Status,
			&dal.Paid,
			&dal.PaidAt,
			&dal.ChargeId,
			&dal.CreatedAt,
			&dal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatus unconditionally sets the status of the order and stamps
// updated_at with the given time.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status order.Status,
	updatedAt time.Time,
) error {
	query, args, err := sq.Update("orders").
		Set("status", status).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return order.ErrNotFound
	}

	return nil
}

// MarkPaid stamps the order as paid with the given charge id. The write is
// unconditional: a re-delivered finalization event re-stamps paid_at.
func (r *PostgresOrderRepository) MarkPaid(
	ctx context.Context,
	id uuid.UUID,
	chargeID string,
	paidAt time.Time,
) error {
	query, args, err := sq.Update("orders").
		Set("status", order.StatusPaid).
		Set("paid", true).
		Set("paid_at", paidAt).
		Set("charge_id", chargeID).
		Set("updated_at", paidAt).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return order.ErrNotFound
	}

	return nil
}
