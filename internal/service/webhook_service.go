package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// WebhookRepositoryInterface defines the interface for webhook record data access.
type WebhookRepositoryInterface interface {
	GetByKey(ctx context.Context, q database.TxQuerier, key string) (*model.PaymentWebhook, error)
	Insert(ctx context.Context, tx database.TxQuerier, webhook *model.PaymentWebhook) error
}

// webhookKeyRetries bounds re-entry after losing the idempotency-key insert
// race. One retry is enough to land in the replay path; the margin covers a
// raced transaction that itself rolled back.
const webhookKeyRetries = 3

// WebhookService idempotently applies terminal payment outcomes to orders.
type WebhookService struct {
	pool     database.TxBeginner
	txOpts   database.TxOptions
	products ProductRepositoryInterface
	holds    HoldRepositoryInterface
	orders   OrderRepositoryInterface
	webhooks WebhookRepositoryInterface
	clock    clock.Clock
}

// NewWebhookService creates a new WebhookService with the given pool and repositories.
func NewWebhookService(pool *pgxpool.Pool, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, orders OrderRepositoryInterface, webhooks WebhookRepositoryInterface, clk clock.Clock) *WebhookService {
	return &WebhookService{
		pool:     pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		orders:   orders,
		webhooks: webhooks,
		clock:    clk,
	}
}

// NewWebhookServiceWithTxBeginner creates a WebhookService with a custom TxBeginner.
// Primarily used for testing.
func NewWebhookServiceWithTxBeginner(pool database.TxBeginner, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, orders OrderRepositoryInterface, webhooks WebhookRepositoryInterface, clk clock.Clock) *WebhookService {
	return &WebhookService{
		pool:     pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		orders:   orders,
		webhooks: webhooks,
		clock:    clk,
	}
}

// HandleWebhook applies a payment outcome to an order exactly once per
// idempotency key. Repeated deliveries with the same key replay the recorded
// outcome without side effects. Concurrent first-time deliveries race on the
// UNIQUE idempotency_key index; losers re-run the handler and replay.
// Returns:
//   - ErrOrderNotFound if no order with order_id exists (nothing is recorded)
//   - ErrIdempotencyKeyConflict if the key was already used for another order
func (s *WebhookService) HandleWebhook(ctx context.Context, key string, orderID int64, result model.WebhookResult, payload []byte) (*model.Order, error) {
	if key == "" || !result.Valid() {
		return nil, ErrInvalidRequest
	}

	var err error
	for attempt := 0; attempt <= webhookKeyRetries; attempt++ {
		var order *model.Order
		order, err = s.handleOnce(ctx, key, orderID, result, payload)
		if errors.Is(err, ErrWebhookKeyRaced) {
			// Another transaction committed this key first. Re-enter: the
			// replay branch will observe its row and no-op.
			continue
		}
		return order, err
	}
	return nil, err
}

func (s *WebhookService) handleOnce(ctx context.Context, key string, orderID int64, result model.WebhookResult, payload []byte) (*model.Order, error) {
	var order *model.Order
	err := database.WithTx(ctx, s.pool, s.txOpts, func(tx pgx.Tx) error {
		// Replay path: a committed record for this key wins forever.
		prior, err := s.webhooks.GetByKey(ctx, tx, key)
		if err != nil {
			return err
		}
		if prior != nil {
			if prior.OrderID != orderID {
				return ErrIdempotencyKeyConflict
			}
			order, err = s.orders.GetByID(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}
			return nil // No mutation on replay
		}

		// First-time path: serialize on the order row.
		order, err = s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		// Record the delivery before applying it. The UNIQUE index makes the
		// first committed insert the winner for this key.
		record := &model.PaymentWebhook{
			IdempotencyKey: key,
			OrderID:        orderID,
			Result:         result,
			Payload:        payload,
			ProcessedAt:    s.clock.Now(),
		}
		if err := s.webhooks.Insert(ctx, tx, record); err != nil {
			return err
		}

		return s.applyOutcome(ctx, tx, order, result)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// applyOutcome transitions the order per the payment result. Terminal states
// absorb: a webhook against a paid or cancelled order is recorded for audit
// but mutates nothing.
func (s *WebhookService) applyOutcome(ctx context.Context, tx pgx.Tx, order *model.Order, result model.WebhookResult) error {
	if order.Status.Terminal() {
		return nil
	}

	switch result {
	case model.WebhookSuccess:
		if !order.Status.CanTransitionTo(model.OrderPaid) {
			return nil
		}
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.OrderPaid); err != nil {
			return err
		}
		order.Status = model.OrderPaid
		return nil

	case model.WebhookFailure:
		if !order.Status.CanTransitionTo(model.OrderCancelled) {
			return nil
		}
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.OrderCancelled); err != nil {
			return err
		}
		order.Status = model.OrderCancelled
		return s.releaseHold(ctx, tx, order)
	}
	return nil
}

// releaseHold returns the order's reserved quantity to available stock unless
// the hold is already expired or cancelled, in which case the reaper or a
// prior failure path restored it and restoring again would double-count.
func (s *WebhookService) releaseHold(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	hold, err := s.holds.GetForUpdate(ctx, tx, order.HoldID)
	if err != nil {
		return err
	}
	if !hold.Status.CanTransitionTo(model.HoldCancelled) {
		return nil
	}

	if _, err := s.products.GetForUpdate(ctx, tx, hold.ProductID); err != nil {
		return err
	}
	if err := s.products.AdjustStock(ctx, tx, hold.ProductID, hold.Qty); err != nil {
		return err
	}
	return s.holds.UpdateStatus(ctx, tx, hold.ID, model.HoldCancelled)
}
