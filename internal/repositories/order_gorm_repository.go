package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func orderNotFound(id uint) *apperr.Error {
	return apperr.NotFound("order with ID %d not found", id)
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Omit("Items", "User").Create(order).Error
	return translate(err, nil, "failed to create order")
}

func (r *GORMOrderRepository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	err := r.db.WithContext(ctx).Create(item).Error
	return translate(err, nil, "failed to create order item")
}

func (r *GORMOrderRepository) SetTotal(ctx context.Context, id uint, total decimal.Decimal) error {
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).
		Update("total_amount", total).Error
	return wrapf(err, "failed to set order total")
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("User").
		First(&order, id).Error
	if err != nil {
		return nil, translate(err, orderNotFound(id), "failed to get order")
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, wrapf(err, "failed to list orders for user %d", userID)
}

func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapf(err, "failed to count orders")
	}

	page := filter.Pagination.Normalize()
	var orders []models.Order
	err := q.Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, wrapf(err, "failed to list orders")
	}
	return orders, total, nil
}

// ListByStatus returns every order in the given status, oldest first.
func (r *GORMOrderRepository) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, wrapf(err, "failed to list %s orders", status)
}

func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return wrapf(res.Error, "failed to update order status")
	}
	if res.RowsAffected == 0 {
		return orderNotFound(id)
	}
	return nil
}

func (r *GORMOrderRepository) UpdatePaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("payment_status", status)
	if res.Error != nil {
		return wrapf(res.Error, "failed to update payment status")
	}
	if res.RowsAffected == 0 {
		return orderNotFound(id)
	}
	return nil
}

// Delete removes the order and its items. Callers run it inside a transaction.
func (r *GORMOrderRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return wrapf(err, "failed to delete order items")
	}
	res := db.Delete(&models.Order{}, id)
	if res.Error != nil {
		return wrapf(res.Error, "failed to delete order")
	}
	if res.RowsAffected == 0 {
		return orderNotFound(id)
	}
	return nil
}

func (r *GORMOrderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, wrapf(err, "failed to count orders")
}

func (r *GORMOrderRepository) CountByUserAndStatus(ctx context.Context, userID uint, status models.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&n).Error
	return n, wrapf(err, "failed to count orders")
}

func (r *GORMOrderRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&n).Error
	return n, wrapf(err, "failed to count orders")
}

func (r *GORMOrderRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.Order{}).Pluck("total_amount", &totals).Error
	if err != nil {
		return decimal.Zero, wrapf(err, "failed to sum revenue")
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

func (r *GORMOrderRepository) HasDeliveredItem(ctx context.Context, userID, productID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?",
			userID, models.OrderStatusDelivered, productID).
		Count(&n).Error
	if err != nil {
		return false, wrapf(err, "failed to check purchase history")
	}
	return n > 0, nil
}
