package models

import "time"

// Category groups products. Categories form a tree through ParentID.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:80;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	ParentID    *uint     `json:"parent_id,omitempty" gorm:"index"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
