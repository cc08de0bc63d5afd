package repositories

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/models"
)

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	CountActive(ctx context.Context) (int64, error)
}

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	db *gorm.DB
}

func NewGORMCategoryRepository(db *gorm.DB) *GORMCategoryRepository {
	return &GORMCategoryRepository{db: db}
}

func (r *GORMCategoryRepository) ListActive(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&out).Error
	return out, wrapf(err, "failed to list categories")
}

func (r *GORMCategoryRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("is_active = ?", true).Count(&n).Error
	return n, wrapf(err, "failed to count categories")
}
