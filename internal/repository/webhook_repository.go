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

// WebhookRepository provides data access for payment webhook records using pgx.
type WebhookRepository struct {
	pool QuerierInterface
}

// NewWebhookRepository creates a new WebhookRepository with the given pool.
func NewWebhookRepository(pool *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

// NewWebhookRepositoryWithPool creates a WebhookRepository with a custom pool
// interface. Primarily used for testing.
func NewWebhookRepositoryWithPool(pool QuerierInterface) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

// GetByKey retrieves the webhook record for an idempotency key.
// Returns nil, nil if no delivery with this key has been recorded yet.
func (r *WebhookRepository) GetByKey(ctx context.Context, q database.TxQuerier, key string) (*model.PaymentWebhook, error) {
	query := `SELECT id, idempotency_key, order_id, result, payload, processed_at
		FROM payment_webhooks WHERE idempotency_key = $1`

	var w model.PaymentWebhook
	err := q.QueryRow(ctx, query, key).Scan(
		&w.ID, &w.IdempotencyKey, &w.OrderID, &w.Result, &w.Payload, &w.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // First observation of this key
		}
		return nil, fmt.Errorf("get webhook by key: %w", err)
	}
	return &w, nil
}

// Insert records a webhook delivery. The UNIQUE constraint on idempotency_key
// serializes concurrent first-time processings; the loser gets
// service.ErrWebhookKeyRaced and must retry the whole handler.
func (r *WebhookRepository) Insert(ctx context.Context, tx database.TxQuerier, webhook *model.PaymentWebhook) error {
	query := `INSERT INTO payment_webhooks (idempotency_key, order_id, result, payload, processed_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := tx.QueryRow(ctx, query,
		webhook.IdempotencyKey, webhook.OrderID, webhook.Result, webhook.Payload, webhook.ProcessedAt).Scan(&webhook.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return service.ErrWebhookKeyRaced
		}
		return fmt.Errorf("insert webhook %s: %w", webhook.IdempotencyKey, err)
	}
	return nil
}
