package services

import (
	"context"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

type WishlistService struct {
	wishlist repositories.WishlistRepository
	products repositories.ProductRepository
}

func NewWishlistService(wishlist repositories.WishlistRepository, products repositories.ProductRepository) *WishlistService {
	return &WishlistService{wishlist: wishlist, products: products}
}

func (s *WishlistService) List(ctx context.Context, userID uint) ([]models.WishlistItem, error) {
	return s.wishlist.ListByUser(ctx, userID)
}

// Add puts an active product on the user's wishlist. Adding the same product twice is a conflict.
func (s *WishlistService) Add(ctx context.Context, userID, productID uint) (*models.WishlistItem, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperr.NotFound("product with ID %d not found", productID)
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.wishlist.Add(ctx, item); err != nil {
		return nil, err
	}
	item.Product = product
	return item, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, itemID uint) error {
	item, err := s.wishlist.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return apperr.Forbidden("access denied")
	}
	return s.wishlist.Remove(ctx, itemID)
}
