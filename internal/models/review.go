package models

import "time"

// Review is a rating left by a user who received the product. One per (user, product).
type Review struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_reviews_user_product"`
	ProductID  uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_reviews_user_product;index"`
	Rating     int       `json:"rating" gorm:"not null"`
	Comment    string    `json:"comment" gorm:"type:text"`
	IsApproved bool      `json:"is_approved" gorm:"not null;index"`
	User       *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product    *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
