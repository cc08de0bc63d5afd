// Package events defines the order events emitted after a transaction commits and the
// publishers that deliver them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body for every order event.
type OrderEvent struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	OrderID        uint               `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	UserID         uint               `json:"user_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newEvent(eventType string, order *models.Order, now time.Time) OrderEvent {
	return OrderEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  now.UTC(),
	}
}

func OrderCreated(order *models.Order, now time.Time) OrderEvent {
	return newEvent(TypeOrderCreated, order, now)
}

func OrderStatusChanged(order *models.Order, previous models.OrderStatus, now time.Time) OrderEvent {
	e := newEvent(TypeOrderStatusChanged, order, now)
	e.PreviousStatus = previous
	return e
}

// Key is used as the routing or partition key so events of one order stay ordered.
func (e OrderEvent) Key() string {
	return e.OrderNumber
}

func Encode(e OrderEvent) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	return body, nil
}

func Decode(body []byte) (OrderEvent, error) {
	var e OrderEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return OrderEvent{}, fmt.Errorf("failed to decode order event: %w", err)
	}
	if e.Type == "" || e.OrderID == 0 {
		return OrderEvent{}, fmt.Errorf("malformed order event: %s", body)
	}
	return e, nil
}

// Publisher delivers events. Publishing is best effort: callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Handler consumes one event. A returned error asks the broker to redeliver.
type Handler func(ctx context.Context, event OrderEvent) error
