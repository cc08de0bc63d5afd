package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	err := r.db.WithContext(ctx).Create(user).Error
	return translate(err, nil, "failed to create user")
}

func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		return nil, translate(err, apperr.NotFound("user %s not found", username), "failed to get user by username")
	}
	return &user, nil
}

func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err, apperr.NotFound("user with email %s not found", email), "failed to get user by email")
	}
	return &user, nil
}

func (r *GORMUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err, apperr.NotFound("user with ID %d not found", id), "failed to get user")
	}
	return &user, nil
}

func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	return translate(err, nil, "failed to update user")
}

func (r *GORMUserRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	for _, owned := range []interface{}{&models.CartItem{}, &models.WishlistItem{}, &models.Notification{}, &models.Review{}} {
		if err := db.Where("user_id = ?", id).Delete(owned).Error; err != nil {
			return wrapf(err, "failed to delete data of user %d", id)
		}
	}
	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return wrapf(res.Error, "failed to delete user")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user with ID %d not found", id)
	}
	return nil
}

func (r *GORMUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	page := filter.Pagination.Normalize()
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapf(err, "failed to count users")
	}
	var users []models.User
	err := query.Order("id ASC").Limit(page.Limit).Offset(page.Offset()).Find(&users).Error
	return users, total, wrapf(err, "failed to list users")
}

func (r *GORMUserRepository) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, wrapf(err, "failed to list user ids")
}

func (r *GORMUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, wrapf(err, "failed to count users")
}
