package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable item in the catalog.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:120;not null;index"`
	SKU         string          `json:"sku" gorm:"column:sku;size:50;not null;uniqueIndex"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	TaxRate     decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);not null"` // percentage
	Stock       int             `json:"stock" gorm:"not null"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	CategoryID  *uint           `json:"category_id,omitempty" gorm:"index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}
