package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Order, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id int64, status model.OrderStatus) error
}

// OrderService converts a valid active hold into a pending order.
type OrderService struct {
	pool     database.TxBeginner
	txOpts   database.TxOptions
	products ProductRepositoryInterface
	holds    HoldRepositoryInterface
	orders   OrderRepositoryInterface
	clock    clock.Clock
}

// NewOrderService creates a new OrderService with the given pool and repositories.
func NewOrderService(pool *pgxpool.Pool, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, orders OrderRepositoryInterface, clk clock.Clock) *OrderService {
	return &OrderService{
		pool:     pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		orders:   orders,
		clock:    clk,
	}
}

// NewOrderServiceWithTxBeginner creates an OrderService with a custom TxBeginner.
// Primarily used for testing.
func NewOrderServiceWithTxBeginner(pool database.TxBeginner, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, orders OrderRepositoryInterface, clk clock.Clock) *OrderService {
	return &OrderService{
		pool:     pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		orders:   orders,
		clock:    clk,
	}
}

// CreateOrder consumes a hold and creates a pending order for it.
// Stock is not touched here: the hold already owns the reserved quantity.
// amount_cents snapshots price_cents at order creation.
// Returns:
//   - ErrHoldNotFound if the hold doesn't exist
//   - ErrHoldNotUsable if the hold is not active or its expiry has passed
//   - ErrHoldAlreadyConsumed if an order already references the hold
func (s *OrderService) CreateOrder(ctx context.Context, holdID int64) (*model.Order, error) {
	var order *model.Order
	err := database.WithTx(ctx, s.pool, s.txOpts, func(tx pgx.Tx) error {
		// 1. Lock the hold row
		hold, err := s.holds.GetForUpdate(ctx, tx, holdID)
		if err != nil {
			return err
		}

		// 2. The hold must be active and not past its expiry. An expired-but-
		// not-yet-reaped hold is unusable even though its status still reads
		// active; the reaper will reclaim it.
		if hold.Status != model.HoldActive || !hold.ExpiresAt.After(s.clock.Now()) {
			return ErrHoldNotUsable
		}

		// 3. Price snapshot. No product lock: price is immutable during the
		// flow, and stock is not read here.
		product, err := s.products.GetByID(ctx, tx, hold.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			// FK guarantees the row exists; treat absence as corruption.
			return fmt.Errorf("product %d missing for hold %d", hold.ProductID, holdID)
		}

		// 4. Insert the order. UNIQUE(hold_id) adjudicates concurrent
		// consumption of the same hold.
		order = &model.Order{
			HoldID:      holdID,
			ProductID:   hold.ProductID,
			Qty:         hold.Qty,
			AmountCents: product.PriceCents * int64(hold.Qty),
			Status:      model.OrderPending,
		}
		if err := s.orders.Insert(ctx, tx, order); err != nil {
			return err
		}

		// 5. Consume the hold
		if !hold.Status.CanTransitionTo(model.HoldUsed) {
			return ErrHoldNotUsable
		}
		return s.holds.UpdateStatus(ctx, tx, holdID, model.HoldUsed)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
