package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "Unpaid"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo allows Unpaid -> Paid -> Refunded only.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return (s == PaymentStatusUnpaid && next == PaymentStatusPaid) ||
		(s == PaymentStatusPaid && next == PaymentStatusRefunded)
}

// Order represents a customer order. TotalAmount is computed once when the order is placed.
type Order struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	UserID        uint            `json:"user_id" gorm:"not null;index"`
	User          *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	OrderNumber   string          `json:"order_number" gorm:"size:50;not null;uniqueIndex"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Status        OrderStatus     `json:"status" gorm:"size:20;not null;index"`
	PaymentStatus PaymentStatus   `json:"payment_status" gorm:"size:10;not null;index"`
	Items         []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is a line of an order. Prices are snapshots taken when the order was placed.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;index"`
	ProductID   uint            `json:"product_id" gorm:"not null;index"`
	ProductName string          `json:"product_name" gorm:"size:120;not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TaxAmount   decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null"`
	TotalPrice  decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}
