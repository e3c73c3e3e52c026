package service

import "errors"

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProductNotFound is returned when a product cannot be found
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned when a product lacks available stock for the requested quantity
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrHoldNotFound is returned when a hold cannot be found
	ErrHoldNotFound = errors.New("hold not found")

	// ErrHoldNotUsable is returned when a hold is not active or has expired
	ErrHoldNotUsable = errors.New("hold not usable")

	// ErrHoldAlreadyConsumed is returned when an order already references the hold
	ErrHoldAlreadyConsumed = errors.New("hold already consumed")

	// ErrOrderNotFound is returned when an order cannot be found
	ErrOrderNotFound = errors.New("order not found")

	// ErrIdempotencyKeyConflict is returned when an idempotency key is replayed against a different order
	ErrIdempotencyKeyConflict = errors.New("idempotency key already used for a different order")

	// ErrWebhookKeyRaced is returned when a concurrent transaction inserted the
	// same idempotency key first. The handler retries and lands in the replay path.
	ErrWebhookKeyRaced = errors.New("webhook idempotency key inserted concurrently")
)
