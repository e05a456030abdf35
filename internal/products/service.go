package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modacart/modacart-backend/pkg/db/models"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/logger"
)

// Service exposes catalog reads and availability checks for the cart.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	EnsureAvailable(ctx context.Context, id uuid.UUID, quantity int, size, color string) (*models.Product, error)
}

type catalogReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
}

type service struct {
	repo catalogReader
	logg *logger.Logger
}

// NewService builds the product service.
func NewService(repo catalogReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products: repository is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context) ([]models.Product, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list products")
	}
	return items, nil
}

// EnsureAvailable loads the product and verifies it can be added to a cart
// with the requested quantity and options.
func (s *service) EnsureAvailable(ctx context.Context, id uuid.UUID, quantity int, size, color string) (*models.Product, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !product.InStock {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock")
	}
	if product.StockQuantity > 0 && quantity > product.StockQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"available": product.StockQuantity})
	}
	if len(product.Sizes) > 0 && !contains(product.Sizes, size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size not available for this product")
	}
	if len(product.Colors) > 0 && !contains(product.Colors, color) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "color not available for this product")
	}
	return product, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
