package service

import (
	"context"
	"fmt"
	"strings"

	"finengine/models"
)

// productService implements the ProductService interface
type productService struct {
	uowFactory UnitOfWorkFactory
}

// NewProductService creates a new product service
func NewProductService(uowFactory UnitOfWorkFactory) ProductService {
	return &productService{uowFactory: uowFactory}
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", models.ErrValidation)
	}
	if p.MinAmount <= 0 {
		return fmt.Errorf("%w: minimum amount must be positive", models.ErrValidation)
	}
	if p.MaxAmount != 0 && p.MaxAmount < p.MinAmount {
		return fmt.Errorf("%w: maximum amount %d is below minimum %d", models.ErrValidation, p.MaxAmount, p.MinAmount)
	}
	if p.ReturnPct < 0 {
		return fmt.Errorf("%w: return percentage cannot be negative", models.ErrValidation)
	}
	if p.Status == "" {
		p.Status = models.ProductStatusActive
	}
	if p.Status != models.ProductStatusActive && p.Status != models.ProductStatusInactive {
		return fmt.Errorf("%w: unknown product status %q", models.ErrValidation, p.Status)
	}
	return nil
}

// UpsertProduct inserts a new product when ID is zero, otherwise edits it
func (s *productService) UpsertProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if product.ID != 0 {
		existing, err := uow.ProductRepository().GetByID(ctx, product.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: product %d", models.ErrNotFound, product.ID)
		}
	}

	if err := uow.ProductRepository().Upsert(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	products, err := uow.ProductRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
