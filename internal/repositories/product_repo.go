package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Search          string
	CategoryID      *uint
	IncludeInactive bool
	Pagination
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error

	// GetForUpdate reads a product and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*models.Product, error)
	// DecrementStock subtracts quantity only if enough stock remains. It reports whether the row changed.
	DecrementStock(ctx context.Context, id uint, quantity int) (bool, error)
	IncrementStock(ctx context.Context, id uint, quantity int) error
	SetStock(ctx context.Context, id uint, stock int) error
	CountActive(ctx context.Context) (int64, error)
}
