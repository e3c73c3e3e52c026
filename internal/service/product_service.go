package service

import (
	"context"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/cache"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
)

// ProductService serves product reads. Name and price go through the
// short-TTL memo; available_stock is always read fresh from the database.
type ProductService struct {
	products ProductRepositoryInterface
	cache    *cache.ProductInfoCache
}

// NewProductService creates a new ProductService.
func NewProductService(products ProductRepositoryInterface, infoCache *cache.ProductInfoCache) *ProductService {
	return &ProductService{products: products, cache: infoCache}
}

// GetProduct retrieves a product view for the read endpoint.
// Returns ErrProductNotFound if the product doesn't exist.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*model.ProductResponse, error) {
	if info, ok := s.cache.Get(id); ok {
		stock, err := s.products.GetAvailableStock(ctx, id)
		if err != nil {
			return nil, err
		}
		return &model.ProductResponse{
			ID:             id,
			Name:           info.Name,
			PriceCents:     info.PriceCents,
			AvailableStock: stock,
		}, nil
	}

	product, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	s.cache.Set(id, cache.ProductInfo{Name: product.Name, PriceCents: product.PriceCents})

	return &model.ProductResponse{
		ID:             product.ID,
		Name:           product.Name,
		PriceCents:     product.PriceCents,
		AvailableStock: product.AvailableStock,
	}, nil
}
