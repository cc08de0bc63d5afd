package repositories

import (
	"context"

	"storefront/internal/models"
)

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	ListApprovedByProduct(ctx context.Context, productID uint, page Pagination) ([]models.Review, int64, error)
	ListPending(ctx context.Context) ([]models.Review, error)
	// ReviewedProductIDs returns the set of products the user has reviewed.
	ReviewedProductIDs(ctx context.Context, userID uint) (map[uint]bool, error)
	Count(ctx context.Context) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}
