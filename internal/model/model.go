package model

import "time"

// HoldStatus is the lifecycle state of a stock reservation.
type HoldStatus string

// Hold statuses. Transitions are monotonic: active→used→cancelled,
// active→expired, active→cancelled. No reverse edges.
const (
	HoldActive    HoldStatus = "active"
	HoldUsed      HoldStatus = "used"
	HoldExpired   HoldStatus = "expired"
	HoldCancelled HoldStatus = "cancelled"
)

var holdTransitions = map[HoldStatus][]HoldStatus{
	HoldActive: {HoldUsed, HoldExpired, HoldCancelled},
	HoldUsed:   {HoldCancelled},
}

// CanTransitionTo reports whether the hold status DAG permits moving from s
// to next. Engines check this before issuing the UPDATE.
func (s HoldStatus) CanTransitionTo(next HoldStatus) bool {
	for _, allowed := range holdTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s HoldStatus) Terminal() bool {
	return len(holdTransitions[s]) == 0
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses. pending→paid and pending→cancelled; paid and cancelled
// are absorbing.
const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
}

// CanTransitionTo reports whether the order status DAG permits moving from s
// to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is absorbing.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// WebhookResult is the payment outcome carried by a webhook delivery.
type WebhookResult string

// Webhook results.
const (
	WebhookSuccess WebhookResult = "success"
	WebhookFailure WebhookResult = "failure"
)

// Valid reports whether r is a known outcome.
func (r WebhookResult) Valid() bool {
	return r == WebhookSuccess || r == WebhookFailure
}

// Product is a sellable item with a finite stock.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	TotalStock     int       `json:"total_stock"`
	AvailableStock int       `json:"available_stock"`
	PriceCents     int64     `json:"price_cents"`
	CreatedAt      time.Time `json:"-"`
}

// Hold is a time-bounded reservation that subtracts from available stock
// without being a sale yet.
type Hold struct {
	ID        int64      `json:"id"`
	ProductID int64      `json:"product_id"`
	Qty       int        `json:"qty"`
	Status    HoldStatus `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

// Order is the commitment derived from consuming exactly one hold.
type Order struct {
	ID          int64       `json:"id"`
	HoldID      int64       `json:"hold_id"`
	ProductID   int64       `json:"product_id"`
	Qty         int         `json:"qty"`
	AmountCents int64       `json:"amount_cents"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"-"`
	UpdatedAt   time.Time   `json:"-"`
}

// PaymentWebhook is the immutable record of one logical webhook delivery.
type PaymentWebhook struct {
	ID             int64         `json:"id"`
	IdempotencyKey string        `json:"idempotency_key"`
	OrderID        int64         `json:"order_id"`
	Result         WebhookResult `json:"result"`
	Payload        []byte        `json:"-"`
	ProcessedAt    time.Time     `json:"processed_at"`
}

// expiryLayout is the wire format for expires_at (UTC, legacy-compatible).
const expiryLayout = "2006-01-02 15:04:05"

// FormatExpiry renders a timestamp the way the API contract requires:
// "YYYY-MM-DD HH:MM:SS" in UTC.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(expiryLayout)
}

// ProductResponse is the API response DTO for GET /products/:id.
// available_stock is always read fresh; name and price may come from the
// short-TTL memo.
type ProductResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PriceCents     int64  `json:"price_cents"`
	AvailableStock int    `json:"available_stock"`
}

// CreateHoldRequest is the DTO for POST /holds.
type CreateHoldRequest struct {
	ProductID *int64 `json:"product_id" validate:"required,gt=0"`
	Qty       *int   `json:"qty" validate:"required,gte=1"`
}

// CreateHoldResponse is the DTO returned on successful hold creation.
type CreateHoldResponse struct {
	HoldID    int64  `json:"hold_id"`
	ExpiresAt string `json:"expires_at"`
}

// CreateOrderRequest is the DTO for POST /orders.
type CreateOrderRequest struct {
	HoldID *int64 `json:"hold_id" validate:"required,gt=0"`
}

// CreateOrderResponse is the DTO returned on successful order creation.
type CreateOrderResponse struct {
	OrderID int64       `json:"order_id"`
	Status  OrderStatus `json:"status"`
}

// WebhookRequest is the DTO for POST /payments/webhook.
type WebhookRequest struct {
	IdempotencyKey string `json:"idempotency_key" validate:"required,notblank,max=255"`
	OrderID        *int64 `json:"order_id" validate:"required,gt=0"`
	Status         string `json:"status" validate:"required,oneof=success failure"`
}

// WebhookResponse is the DTO returned after a webhook is handled or replayed.
type WebhookResponse struct {
	OrderID        int64       `json:"order_id"`
	OrderStatus    OrderStatus `json:"order_status"`
	IdempotencyKey string      `json:"idempotency_key"`
}
