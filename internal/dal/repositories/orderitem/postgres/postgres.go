package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/microshop/orders/internal/dal/postgres"
	"github.com/microshop/orders/internal/service/models/orderitem"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	Id        int64     `db:"id"`
	OrderId   uuid.UUID `db:"order_id"`
	ProductId int64     `db:"product_id"`
	Price     float64   `db:"price"`
	Quantity  int       `db:"quantity"`
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() *orderitem.OrderItem {
	return &orderitem.OrderItem{
		ID:        oi.Id,
		OrderID:   oi.OrderId,
		ProductID: oi.ProductId,
		Price:     oi.Price,
		Quantity:  oi.Quantity,
	}
}

type PostgresOrderItemRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderItemRepository(conn postgres.Querier) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
	}
}

// BulkInsert inserts the items of an order and returns them with ids.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	items []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(items) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	builder := sq.Insert("order_items").
		Columns("order_id", "product_id", "price", "quantity")
	for _, item := range items {
		builder = builder.Values(item.OrderID, item.ProductID, item.Price, item.Quantity)
	}

	query, args, err := builder.
		Suffix("RETURNING id, order_id, product_id, price, quantity").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	result := make([]orderitem.OrderItem, 0, len(items))
	for rows.Next() {
		var dal OrderItemDal
		err := rows.Scan(&dal.Id, &dal.OrderId, &dal.ProductId, &dal.Price, &dal.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, *dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// QueryByOrderIDs returns all items belonging to the given orders.
func (r *PostgresOrderItemRepository) QueryByOrderIDs(
	ctx context.Context,
	orderIDs []uuid.UUID,
) ([]orderitem.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query, args, err := sq.Select("id", "order_id", "product_id", "price", "quantity").
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		err := rows.Scan(&dal.Id, &dal.OrderId, &dal.ProductId, &dal.Price, &dal.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, *dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
