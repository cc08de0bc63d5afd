package repositories

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{db: db}
}

func reviewNotFound(id uint) *apperr.Error {
	return apperr.NotFound("review with ID %d not found", id)
}

// Create fails with a conflict error when the user already reviewed the product.
func (r *GORMReviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Omit("User", "Product").Create(review).Error
	if err != nil {
		return translate(err, nil, "you have already reviewed this product")
	}
	return nil
}

func (r *GORMReviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Model(review).Select("rating", "comment", "is_approved").
		Updates(map[string]interface{}{
			"rating":      review.Rating,
			"comment":     review.Comment,
			"is_approved": review.IsApproved,
		}).Error
	return wrapf(err, "failed to update review")
}

func (r *GORMReviewRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if res.Error != nil {
		return wrapf(res.Error, "failed to delete review")
	}
	if res.RowsAffected == 0 {
		return reviewNotFound(id)
	}
	return nil
}

func (r *GORMReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, translate(err, reviewNotFound(id), "failed to get review")
	}
	return &review, nil
}

func (r *GORMReviewRepository) ListApprovedByProduct(ctx context.Context, productID uint, page Pagination) ([]models.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ? AND is_approved = ?", productID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapf(err, "failed to count reviews")
	}

	page = page.Normalize()
	var reviews []models.Review
	err := q.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, wrapf(err, "failed to list reviews")
	}
	return reviews, total, nil
}

func (r *GORMReviewRepository) ListPending(ctx context.Context) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("User").Preload("Product").
		Where("is_approved = ?", false).
		Order("created_at ASC, id ASC").
		Find(&reviews).Error
	return reviews, wrapf(err, "failed to list pending reviews")
}

func (r *GORMReviewRepository) ReviewedProductIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("user_id = ?", userID).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, wrapf(err, "failed to load reviewed products")
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *GORMReviewRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).Count(&n).Error
	return n, wrapf(err, "failed to count reviews")
}

func (r *GORMReviewRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).Where("is_approved = ?", false).Count(&n).Error
	return n, wrapf(err, "failed to count pending reviews")
}
