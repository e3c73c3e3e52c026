package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/service"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// HoldRepository provides data access for holds using pgx.
type HoldRepository struct {
	pool QuerierInterface
}

// NewHoldRepository creates a new HoldRepository with the given pool.
func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

// NewHoldRepositoryWithPool creates a HoldRepository with a custom pool
// interface. Primarily used for testing.
func NewHoldRepositoryWithPool(pool QuerierInterface) *HoldRepository {
	return &HoldRepository{pool: pool}
}

// Insert inserts a new hold and fills in its generated id.
// Must be called within the transaction that decremented the product's stock.
func (r *HoldRepository) Insert(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error {
	query := `INSERT INTO holds (product_id, qty, status, expires_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	err := tx.QueryRow(ctx, query, hold.ProductID, hold.Qty, hold.Status, hold.ExpiresAt).Scan(&hold.ID)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// GetForUpdate retrieves a hold with a row lock (SELECT FOR UPDATE).
// Returns service.ErrHoldNotFound if the hold doesn't exist.
func (r *HoldRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Hold, error) {
	query := `SELECT id, product_id, qty, status, expires_at, created_at, updated_at
		FROM holds WHERE id = $1 FOR UPDATE`

	var h model.Hold
	err := tx.QueryRow(ctx, query, id).Scan(
		&h.ID, &h.ProductID, &h.Qty, &h.Status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrHoldNotFound
		}
		return nil, fmt.Errorf("get hold for update %d: %w", id, err)
	}
	return &h, nil
}

// UpdateStatus transitions a hold to the given status.
// Must be called within a transaction after locking the row; the engine is
// responsible for checking the transition table first.
func (r *HoldRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id int64, status model.HoldStatus) error {
	query := `UPDATE holds SET status = $2, updated_at = now() WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update hold %d to %s: %w", id, status, err)
	}
	return nil
}

// ListExpiredIDs returns ids of active holds whose expires_at has passed,
// ordered by id, at most limit of them. Runs outside any transaction; the
// reaper re-checks each candidate under a row lock before acting.
func (r *HoldRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `SELECT id FROM holds
		WHERE status = $1 AND expires_at < $2
		ORDER BY id
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, model.HoldActive, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired hold id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired holds: %w", err)
	}
	return ids, nil
}
