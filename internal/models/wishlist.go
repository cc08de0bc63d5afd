package models

import "time"

type WishlistItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_wishlist_user_product"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_wishlist_user_product"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `json:"added_at"`
}

func (WishlistItem) TableName() string {
	return "wishlist"
}
