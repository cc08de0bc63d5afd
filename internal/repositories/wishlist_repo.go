package repositories

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// WishlistRepository defines the interface for wishlist data access.
type WishlistRepository interface {
	Add(ctx context.Context, item *models.WishlistItem) error
	GetByID(ctx context.Context, id uint) (*models.WishlistItem, error)
	Remove(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint) ([]models.WishlistItem, error)
}

// GORMWishlistRepository is a GORM implementation of WishlistRepository.
type GORMWishlistRepository struct {
	db *gorm.DB
}

func NewGORMWishlistRepository(db *gorm.DB) *GORMWishlistRepository {
	return &GORMWishlistRepository{db: db}
}

func (r *GORMWishlistRepository) Add(ctx context.Context, item *models.WishlistItem) error {
	err := r.db.WithContext(ctx).Omit("Product").Create(item).Error
	return translate(err, nil, "failed to add to wishlist")
}

func (r *GORMWishlistRepository) GetByID(ctx context.Context, id uint) (*models.WishlistItem, error) {
	var item models.WishlistItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err, apperr.NotFound("wishlist item with ID %d not found", id), "failed to get wishlist item")
	}
	return &item, nil
}

func (r *GORMWishlistRepository) Remove(ctx context.Context, id uint) error {
	return wrapf(r.db.WithContext(ctx).Delete(&models.WishlistItem{}, id).Error, "failed to remove wishlist item")
}

func (r *GORMWishlistRepository) ListByUser(ctx context.Context, userID uint) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, wrapf(err, "failed to list wishlist")
}
