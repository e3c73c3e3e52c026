package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/service"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// WebhookServiceInterface defines the interface for webhook business logic.
type WebhookServiceInterface interface {
	HandleWebhook(ctx context.Context, key string, orderID int64, result model.WebhookResult, payload []byte) (*model.Order, error)
}

// WebhookHandler handles payment gateway callbacks.
type WebhookHandler struct {
	service   WebhookServiceInterface
	validator *validator.Validate
}

// NewWebhookHandler creates a new WebhookHandler with the given service and validator.
func NewWebhookHandler(svc WebhookServiceInterface, v *validator.Validate) *WebhookHandler {
	return &WebhookHandler{service: svc, validator: v}
}

func formatWebhookValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			switch fe.Field() {
			case "IdempotencyKey":
				if fe.Tag() == "required" {
					return "invalid request: idempotency_key is required"
				}
				if fe.Tag() == "notblank" {
					return "invalid request: idempotency_key cannot be whitespace only"
				}
				if fe.Tag() == "max" {
					return "invalid request: idempotency_key exceeds maximum length of 255"
				}
				return "invalid request: idempotency_key is invalid"
			case "OrderID":
				if fe.Tag() == "required" {
					return "invalid request: order_id is required"
				}
				return "invalid request: order_id must be a positive integer"
			case "Status":
				if fe.Tag() == "required" {
					return "invalid request: status is required"
				}
				return "invalid request: status must be \"success\" or \"failure\""
			default:
				return "invalid request: " + fe.Field() + " is invalid"
			}
		}
	}
	return "invalid request"
}

// HandleWebhook handles POST /payments/webhook requests from the payment
// gateway. The raw body is preserved verbatim as the webhook payload.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var req model.WebhookRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": formatWebhookValidationError(err)})
	}

	// c.Body() is reused by fiber after the handler returns; the payload
	// outlives the request, so copy it.
	payload := make([]byte, len(c.Body()))
	copy(payload, c.Body())

	order, err := h.service.HandleWebhook(c.Context(), req.IdempotencyKey, *req.OrderID, model.WebhookResult(req.Status), payload)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "order_id: order not found"})
		}
		if errors.Is(err, service.ErrIdempotencyKeyConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "idempotency_key already used for a different order"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request"})
		}
		if database.IsTransient(err) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporary conflict, please retry"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("idempotency_key", req.IdempotencyKey).
			Int64("order_id", *req.OrderID).
			Str("result", req.Status).
			Msg("payment_webhook_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("idempotency_key", req.IdempotencyKey).
		Int64("order_id", order.ID).
		Str("order_status", string(order.Status)).
		Str("result", req.Status).
		Msg("payment_webhook_handled")

	return c.Status(fiber.StatusOK).JSON(model.WebhookResponse{
		OrderID:        order.ID,
		OrderStatus:    order.Status,
		IdempotencyKey: req.IdempotencyKey,
	})
}
