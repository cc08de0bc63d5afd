package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// CartRepository defines the interface for shopping cart data access.
type CartRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error)
	Get(ctx context.Context, userID, productID uint) (*models.CartItem, error)
	// Add inserts the line or adds quantity to an existing line for the same product.
	Add(ctx context.Context, userID, productID uint, quantity int) error
	SetQuantity(ctx context.Context, userID, productID uint, quantity int) error
	Remove(ctx context.Context, userID, productID uint) error
	Clear(ctx context.Context, userID uint) error
}

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func cartItemNotFound(productID uint) *apperr.Error {
	return apperr.NotFound("product %d is not in the cart", productID)
}

func (r *GORMCartRepository) ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	return items, wrapf(err, "failed to load cart")
}

func (r *GORMCartRepository) Get(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
	if err != nil {
		return nil, translate(err, cartItemNotFound(productID), "failed to get cart item")
	}
	return &item, nil
}

func (r *GORMCartRepository) Add(ctx context.Context, userID, productID uint, quantity int) error {
	item := models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	err := r.db.WithContext(ctx).Omit("Product").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart.quantity + ?", quantity)}),
	}).Create(&item).Error
	return wrapf(err, "failed to add to cart")
}

func (r *GORMCartRepository) SetQuantity(ctx context.Context, userID, productID uint, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return wrapf(res.Error, "failed to update cart")
	}
	if res.RowsAffected == 0 {
		return cartItemNotFound(productID)
	}
	return nil
}

func (r *GORMCartRepository) Remove(ctx context.Context, userID, productID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.CartItem{})
	if res.Error != nil {
		return wrapf(res.Error, "failed to remove cart item")
	}
	if res.RowsAffected == 0 {
		return cartItemNotFound(productID)
	}
	return nil
}

func (r *GORMCartRepository) Clear(ctx context.Context, userID uint) error {
	return wrapf(r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error, "failed to clear cart")
}
