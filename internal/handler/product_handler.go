package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/service"
)

// ProductServiceInterface defines the interface for product reads.
type ProductServiceInterface interface {
	GetProduct(ctx context.Context, id int64) (*model.ProductResponse, error)
}

// ProductHandler handles HTTP requests for product reads.
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler creates a new ProductHandler with the given service.
func NewProductHandler(svc ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: svc}
}

// GetProduct handles GET /products/:id requests.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}

	product, err := h.service.GetProduct(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		log.Error().Err(err).Int("product_id", id).Msg("failed to get product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(product)
}
