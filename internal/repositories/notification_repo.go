package repositories

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// NotificationWithUser is a notification with its recipient's username, for the admin listing.
type NotificationWithUser struct {
	models.Notification
	Username string `json:"username"`
}

// NotificationRepository defines the interface for in-app notification data access.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, list []models.Notification) error
	ListByUser(ctx context.Context, userID uint) ([]models.Notification, error)
	List(ctx context.Context, page Pagination) ([]NotificationWithUser, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	SetRead(ctx context.Context, id uint, read bool) error
	Delete(ctx context.Context, id uint) error
}

// GORMNotificationRepository is a GORM implementation of NotificationRepository.
type GORMNotificationRepository struct {
	db *gorm.DB
}

func NewGORMNotificationRepository(db *gorm.DB) *GORMNotificationRepository {
	return &GORMNotificationRepository{db: db}
}

func (r *GORMNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return wrapf(r.db.WithContext(ctx).Create(n).Error, "failed to create notification")
}

// CreateBatch inserts every notification in one statement, so either all of them are stored or none.
func (r *GORMNotificationRepository) CreateBatch(ctx context.Context, list []models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	return wrapf(r.db.WithContext(ctx).Create(&list).Error, "failed to create notifications")
}

func (r *GORMNotificationRepository) List(ctx context.Context, page Pagination) ([]NotificationWithUser, int64, error) {
	page = page.Normalize()
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, wrapf(err, "failed to count notifications")
	}
	var out []NotificationWithUser
	err := db.Table("notifications").
		Select("notifications.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = notifications.user_id").
		Order("notifications.created_at DESC, notifications.id DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Scan(&out).Error
	return out, total, wrapf(err, "failed to list notifications")
}

func (r *GORMNotificationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&out).Error
	return out, wrapf(err, "failed to list notifications")
}

func (r *GORMNotificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, translate(err, apperr.NotFound("notification with ID %d not found", id), "failed to get notification")
	}
	return &n, nil
}

func (r *GORMNotificationRepository) SetRead(ctx context.Context, id uint, read bool) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", read).Error
	return wrapf(err, "failed to update notification")
}

func (r *GORMNotificationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if res.Error != nil {
		return wrapf(res.Error, "failed to delete notification")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification with ID %d not found", id)
	}
	return nil
}
