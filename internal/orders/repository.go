package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

const (
	uniqueViolation          = "23505"
	idempotencyKeyConstraint = "orders_idempotency_key_key"
)

const orderColumns = `
	id, COALESCE(idempotency_key, ''), customer_name, customer_address,
	customer_phone, customer_email, status, total_amount, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, idempotency_key, customer_name, customer_address,
			customer_phone, customer_email, status, total_amount)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, order.ID, order.IdempotencyKey, order.Name, order.Address, order.Phone, order.Email,
		order.Status, order.TotalAmount,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			return ErrDuplicateIdempotencyKey
		}
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, menu_item_id, name, image_url, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, order.ID, i, item.MenuItemID, item.Name, item.ImageURL, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return r.getOne(ctx, row)
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	if key == "" {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	return r.getOne(ctx, row)
}

func (r *OrderRepository) List(ctx context.Context, email string) ([]domain.Order, error) {
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE $1 = '' OR customer_email = $1
		ORDER BY created_at DESC, id DESC
	`, email)
}

func (r *OrderRepository) ListPage(ctx context.Context, after *Cursor, limit int) ([]domain.Order, error) {
	if after == nil {
		return r.query(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			ORDER BY updated_at DESC, id DESC
			LIMIT $1
		`, limit)
	}

	if _, err := uuid.Parse(after.ID); err != nil {
		return nil, fmt.Errorf("%w: cursor id is not a uuid", domain.ErrInvalidCursor)
	}

	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE (updated_at, id) < ($1, $2::uuid)
		ORDER BY updated_at DESC, id DESC
		LIMIT $3
	`, after.UpdatedAt, after.ID, limit)
}

func (r *OrderRepository) ListActive(ctx context.Context, limit int) ([]domain.Order, error) {
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status <> $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, domain.OrderStatusDelivered, limit)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = clock_timestamp()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 && order != nil {
		return nil, ErrStatusConflict
	}

	return order, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (domain.Order, error) {
	var order domain.Order
	err := s.Scan(&order.ID, &order.IdempotencyKey, &order.Name, &order.Address,
		&order.Phone, &order.Email, &order.Status, &order.TotalAmount,
		&order.CreatedAt, &order.UpdatedAt)
	return order, err
}

func (r *OrderRepository) getOne(ctx context.Context, row *sql.Row) (*domain.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	orders := []domain.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the lines of all orders with a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	ids := make([]string, 0, len(orders))
	for i := range orders {
		orders[i].Items = []domain.OrderLine{}
		index[orders[i].ID] = i
		ids = append(ids, orders[i].ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, menu_item_id, name, image_url, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var item domain.OrderLine
		if err := rows.Scan(&orderID, &item.ID, &item.MenuItemID, &item.Name, &item.ImageURL, &item.Quantity, &item.UnitPrice); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	return rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}
