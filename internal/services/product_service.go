package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProductInput is the writable part of a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=120"`
	SKU         string          `json:"sku" validate:"required,max=50"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Stock       int             `json:"stock" validate:"gte=0"`
	IsActive    *bool           `json:"is_active,omitempty"`
	CategoryID  *uint           `json:"category_id,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func (in ProductInput) validate() error {
	fields := map[string]string{}
	if in.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(hundred) {
		fields["tax_rate"] = "must be between 0 and 100"
	}
	if in.Stock < 0 {
		fields["stock"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid product", fields)
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.SKU = strings.TrimSpace(in.SKU)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.TaxRate = in.TaxRate.Round(2)
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ListProducts returns one page of the catalog. Inactive products are only listed for admins.
func (s *ProductService) ListProducts(ctx context.Context, actor Actor, filter repositories.ProductFilter) ([]models.Product, int64, error) {
	if !actor.IsAdmin() {
		filter.IncludeInactive = false
	}
	return s.repo.List(ctx, filter)
}

// GetProduct returns a product. Inactive products are hidden from customers.
func (s *ProductService) GetProduct(ctx context.Context, actor Actor, id uint) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !actor.IsAdmin() {
		return nil, apperr.NotFound("product with ID %d not found", id)
	}
	return p, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.Product{IsActive: true}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetStock overwrites the stock level of a product.
func (s *ProductService) SetStock(ctx context.Context, id uint, stock int) error {
	if stock < 0 {
		return apperr.Validation("stock must not be negative", nil)
	}
	return s.repo.SetStock(ctx, id, stock)
}

// DeleteProduct soft-deletes a product. Past order lines keep their snapshot.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
