package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/service"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// OrderRepository provides data access for orders using pgx.
type OrderRepository struct {
	pool QuerierInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates an OrderRepository with a custom pool
// interface. Primarily used for testing.
func NewOrderRepositoryWithPool(pool QuerierInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, hold_id, product_id, qty, amount_cents, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.HoldID, &o.ProductID, &o.Qty, &o.AmountCents, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Insert inserts a new order and fills in its generated id.
// The UNIQUE constraint on hold_id adjudicates concurrent consumption of the
// same hold; the loser gets service.ErrHoldAlreadyConsumed.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	query := `INSERT INTO orders (hold_id, product_id, qty, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := tx.QueryRow(ctx, query,
		order.HoldID, order.ProductID, order.Qty, order.AmountCents, order.Status).Scan(&order.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return service.ErrHoldAlreadyConsumed
		}
		return fmt.Errorf("insert order for hold %d: %w", order.HoldID, err)
	}
	return nil
}

// GetByID retrieves an order without locking it.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// GetForUpdate retrieves an order with a row lock (SELECT FOR UPDATE).
// Webhook processing for a single order serializes on this lock.
// Returns service.ErrOrderNotFound if the order doesn't exist.
func (r *OrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order for update %d: %w", id, err)
	}
	return o, nil
}

// UpdateStatus transitions an order to the given status.
// Must be called within a transaction after locking the row; the engine is
// responsible for checking the transition table first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id int64, status model.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update order %d to %s: %w", id, status, err)
	}
	return nil
}
