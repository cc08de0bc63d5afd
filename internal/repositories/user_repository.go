package repositories

import (
	"context"

	"storefront/internal/models"
)

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Role   string
	Search string // matched against username, email and full name
	Pagination
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// Delete removes the user with their cart, wishlist, notifications and reviews.
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	IDs(ctx context.Context) ([]uint, error)
	Count(ctx context.Context) (int64, error)
}
