package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups every repository bound to the same database handle.
type Repositories struct {
	Users         UserRepository
	Products      ProductRepository
	Categories    CategoryRepository
	Orders        OrderRepository
	Reviews       ReviewRepository
	Notifications NotificationRepository
	Wishlist      WishlistRepository
	Cart          CartRepository
}

// Transactor runs fn with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

// Store is the GORM backed Transactor.
type Store struct {
	db *gorm.DB
	Repositories
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, Repositories: newRepositories(db)}
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         NewGORMUserRepository(db),
		Products:      NewGORMProductRepository(db),
		Categories:    NewGORMCategoryRepository(db),
		Orders:        NewGORMOrderRepository(db),
		Reviews:       NewGORMReviewRepository(db),
		Notifications: NewGORMNotificationRepository(db),
		Wishlist:      NewGORMWishlistRepository(db),
		Cart:          NewGORMCartRepository(db),
	}
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}
