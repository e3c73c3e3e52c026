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

// QuerierInterface defines the database operations needed by read-side
// repository methods. Satisfied by *pgxpool.Pool; mocked in tests.
type QuerierInterface interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ProductRepository provides data access for products using pgx.
type ProductRepository struct {
	pool QuerierInterface
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// NewProductRepositoryWithPool creates a ProductRepository with a custom pool
// interface. Primarily used for testing.
func NewProductRepositoryWithPool(pool QuerierInterface) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, total_stock, available_stock, price_cents, created_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.TotalStock, &p.AvailableStock, &p.PriceCents, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a product without locking it.
// Returns nil, nil if the product is not found (service layer handles this).
func (r *ProductRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// Get retrieves a product through the repository's own pool. Used by the
// read path outside any transaction.
func (r *ProductRepository) Get(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// GetAvailableStock reads only the available_stock column. Stock is never
// served from the product info memo, so this read always hits the database.
func (r *ProductRepository) GetAvailableStock(ctx context.Context, id int64) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx, `SELECT available_stock FROM products WHERE id = $1`, id).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, service.ErrProductNotFound
		}
		return 0, fmt.Errorf("get available stock for product %d: %w", id, err)
	}
	return stock, nil
}

// GetForUpdate retrieves a product with a row lock (SELECT FOR UPDATE).
// All stock mutations for a product serialize on this lock.
// Returns service.ErrProductNotFound if the product doesn't exist.
func (r *ProductRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	p, err := scanProduct(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product for update %d: %w", id, err)
	}
	return p, nil
}

// AdjustStock changes available_stock by delta (negative to reserve, positive
// to release). Must be called within a transaction after locking the row; the
// CHECK constraint on available_stock backstops the engine-level guard.
func (r *ProductRepository) AdjustStock(ctx context.Context, tx database.TxQuerier, id int64, delta int) error {
	query := `UPDATE products SET available_stock = available_stock + $2 WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock for product %d by %d: %w", id, delta, err)
	}
	return nil
}
