package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// ProductRepositoryInterface defines the interface for product data access.
type ProductRepositoryInterface interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error)
	GetAvailableStock(ctx context.Context, id int64) (int, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error)
	AdjustStock(ctx context.Context, tx database.TxQuerier, id int64, delta int) error
}

// HoldRepositoryInterface defines the interface for hold data access.
type HoldRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Hold, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id int64, status model.HoldStatus) error
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

// HoldService reserves stock by creating time-bounded holds.
type HoldService struct {
	pool     database.TxBeginner
	txOpts   database.TxOptions
	products ProductRepositoryInterface
	holds    HoldRepositoryInterface
	clock    clock.Clock
	holdTTL  time.Duration
}

// NewHoldService creates a new HoldService with the given pool and repositories.
func NewHoldService(pool *pgxpool.Pool, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, clk clock.Clock, holdTTL time.Duration) *HoldService {
	return &HoldService{
		pool:     pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		clock:    clk,
		holdTTL:  holdTTL,
	}
}

// NewHoldServiceWithTxBeginner creates a HoldService with a custom TxBeginner.
// Primarily used for testing.
func NewHoldServiceWithTxBeginner(pool database.TxBeginner, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, clk clock.Clock, holdTTL time.Duration) *HoldService {
	return &HoldService{
		pool:     pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		clock:    clk,
		holdTTL:  holdTTL,
	}
}

// CreateHold atomically reserves qty units of a product.
// Locking the product row serializes all stock decrements for that product,
// so no interleaving can observe a negative available_stock.
// Returns:
//   - ErrProductNotFound if the product doesn't exist
//   - ErrInsufficientStock if available_stock < qty
//   - ErrInvalidRequest if qty < 1
func (s *HoldService) CreateHold(ctx context.Context, productID int64, qty int) (*model.Hold, error) {
	// Defense-in-depth: the handler validates, but the engine is the boundary
	if qty < 1 {
		return nil, ErrInvalidRequest
	}

	var hold *model.Hold
	err := database.WithTx(ctx, s.pool, s.txOpts, func(tx pgx.Tx) error {
		// 1. Lock the product row (SELECT FOR UPDATE)
		product, err := s.products.GetForUpdate(ctx, tx, productID)
		if err != nil {
			return err
		}

		// 2. Check stock under the lock
		if product.AvailableStock < qty {
			return ErrInsufficientStock
		}

		// 3. Decrement stock
		if err := s.products.AdjustStock(ctx, tx, productID, -qty); err != nil {
			return err
		}

		// 4. Insert the active hold
		hold = &model.Hold{
			ProductID: productID,
			Qty:       qty,
			Status:    model.HoldActive,
			ExpiresAt: s.clock.Now().Add(s.holdTTL),
		}
		return s.holds.Insert(ctx, tx, hold)
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}
