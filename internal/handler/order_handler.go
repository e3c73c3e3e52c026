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

// OrderServiceInterface defines the interface for order business logic.
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, holdID int64) (*model.Order, error)
}

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	service   OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler with the given service and validator.
func NewOrderHandler(svc OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{service: svc, validator: v}
}

func formatOrderValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if fe.Field() == "HoldID" {
				if fe.Tag() == "required" {
					return "invalid request: hold_id is required"
				}
				return "invalid request: hold_id must be a positive integer"
			}
			return "invalid request: " + fe.Field() + " is invalid"
		}
	}
	return "invalid request"
}

// CreateOrder handles POST /orders requests to convert a hold into an order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req model.CreateOrderRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": formatOrderValidationError(err)})
	}

	order, err := h.service.CreateOrder(c.Context(), *req.HoldID)
	if err != nil {
		if errors.Is(err, service.ErrHoldNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "hold_id: hold not found"})
		}
		if errors.Is(err, service.ErrHoldNotUsable) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "hold_id: hold is not active or has expired"})
		}
		if errors.Is(err, service.ErrHoldAlreadyConsumed) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "hold_id: hold already consumed"})
		}
		if database.IsTransient(err) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporary conflict, please retry"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("hold_id", *req.HoldID).
			Msg("failed to create order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int64("order_id", order.ID).
		Int64("hold_id", order.HoldID).
		Int64("amount_cents", order.AmountCents).
		Msg("order_created")

	return c.Status(fiber.StatusCreated).JSON(model.CreateOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
	})
}
