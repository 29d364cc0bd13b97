package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/port"
)

type NewProduct struct {
	Name              string
	Description       string
	PricePerUnit      int64
	QuantityAvailable int
}

type CatalogService struct {
	db    port.DatabaseRepository
	now   func() time.Time
	newID func() string
}

func NewCatalogService(db port.DatabaseRepository) *CatalogService {
	return &CatalogService{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newID,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.ProductListing, error) {
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.ProductListing{}
	}
	return products, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, farmer domain.Farmer, in NewProduct) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return domain.Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case in.PricePerUnit < 0:
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case in.QuantityAvailable < 0:
		return domain.Product{}, fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}

	product := domain.Product{
		ID:                s.newID(),
		FarmerID:          farmer.ID,
		Name:              name,
		Description:       in.Description,
		PricePerUnit:      in.PricePerUnit,
		QuantityAvailable: in.QuantityAvailable,
		CreatedAt:         s.now(),
	}
	if err := s.db.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// UpdatePrice changes the price future checkouts will snapshot. Only the
// owning farmer may change it.
func (s *CatalogService) UpdatePrice(ctx context.Context, farmer domain.Farmer, productID string, price int64) (domain.Product, error) {
	if price < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}

	product, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if product.FarmerID != farmer.ID {
		return domain.Product{}, ErrForbidden
	}

	if err := s.db.UpdatePrice(ctx, productID, price); err != nil {
		return domain.Product{}, fmt.Errorf("update price: %w", err)
	}
	product.PricePerUnit = price
	return *product, nil
}
