package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status *models.OrderStatus
	Pagination
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	SetTotal(ctx context.Context, id uint, total decimal.Decimal) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) error
	Delete(ctx context.Context, id uint) error

	Count(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	CountByUserAndStatus(ctx context.Context, userID uint, status models.OrderStatus) (int64, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	// HasDeliveredItem reports whether the user has a Delivered order containing the product.
	HasDeliveredItem(ctx context.Context, userID, productID uint) (bool, error)
}
