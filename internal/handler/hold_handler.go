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

// HoldServiceInterface defines the interface for hold business logic.
type HoldServiceInterface interface {
	CreateHold(ctx context.Context, productID int64, qty int) (*model.Hold, error)
}

// HoldHandler handles HTTP requests for hold operations.
type HoldHandler struct {
	service   HoldServiceInterface
	validator *validator.Validate
}

// NewHoldHandler creates a new HoldHandler with the given service and validator.
func NewHoldHandler(svc HoldServiceInterface, v *validator.Validate) *HoldHandler {
	return &HoldHandler{service: svc, validator: v}
}

// formatHoldValidationError converts validator errors to field-targeted messages.
func formatHoldValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			switch fe.Field() {
			case "ProductID":
				if fe.Tag() == "required" {
					return "invalid request: product_id is required"
				}
				return "invalid request: product_id must be a positive integer"
			case "Qty":
				if fe.Tag() == "required" {
					return "invalid request: qty is required"
				}
				return "invalid request: qty must be at least 1"
			default:
				return "invalid request: " + fe.Field() + " is invalid"
			}
		}
	}
	return "invalid request"
}

// CreateHold handles POST /holds requests to reserve stock.
func (h *HoldHandler) CreateHold(c *fiber.Ctx) error {
	var req model.CreateHoldRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": formatHoldValidationError(err)})
	}

	hold, err := h.service.CreateHold(c.Context(), *req.ProductID, *req.Qty)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "product_id: product not found"})
		}
		if errors.Is(err, service.ErrInsufficientStock) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "qty: insufficient stock"})
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
			Int64("product_id", *req.ProductID).
			Int("qty", *req.Qty).
			Msg("failed to create hold")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int64("hold_id", hold.ID).
		Int64("product_id", hold.ProductID).
		Int("qty", hold.Qty).
		Time("expires_at", hold.ExpiresAt).
		Msg("hold_created")

	return c.Status(fiber.StatusCreated).JSON(model.CreateHoldResponse{
		HoldID:    hold.ID,
		ExpiresAt: model.FormatExpiry(hold.ExpiresAt),
	})
}
