package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/repositories"
)

const confirmationSentDetail = "Order confirmation email sent"

// OrderLine is one requested (product, quantity) pair.
type OrderLine struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gte=1"`
}

// PlacedOrder is the result of a successful placement.
type PlacedOrder struct {
	Order              *models.Order
	NotificationSent   bool
	NotificationDetail string
}

// OrderItemView is an order line annotated for the customer's order history.
type OrderItemView struct {
	models.OrderItem
	HasReviewed bool `json:"has_reviewed"`
}

type OrderView struct {
	models.Order
	Items []OrderItemView `json:"items"`
}

type UserOrders struct {
	Orders       []OrderView `json:"orders"`
	PendingCount int64       `json:"pending_count"`
}

// OrderUpdate carries the optional fields an admin may change on an order.
type OrderUpdate struct {
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	store     repositories.Transactor
	repos     repositories.Repositories
	mailer    OrderMailer
	publisher events.Publisher
	log       logrus.FieldLogger
	now       Clock
	random    io.Reader
	mailWait  time.Duration
}

// NewOrderService creates a new OrderService. mailer and publisher may be nil.
func NewOrderService(store repositories.Transactor, repos repositories.Repositories, mailer OrderMailer, publisher events.Publisher, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		store:     store,
		repos:     repos,
		mailer:    mailer,
		publisher: publisher,
		log:       log,
		now:       timeNow,
		random:    rand.Reader,
		mailWait:  10 * time.Second,
	}
}

// SetMailTimeout bounds how long placement waits for the confirmation email.
func (s *OrderService) SetMailTimeout(d time.Duration) {
	if d > 0 {
		s.mailWait = d
	}
}

func validateLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return apperr.Validation("order must contain at least one item", nil)
	}
	for i, l := range lines {
		if l.ProductID == 0 {
			return apperr.Validation(fmt.Sprintf("items[%d]: product_id must be a positive integer", i), nil)
		}
		if l.Quantity < 1 {
			return apperr.Validation(fmt.Sprintf("items[%d]: quantity must be at least 1", i), nil)
		}
	}
	return nil
}

// PlaceOrder creates an order for userID, reserving stock for every line in one transaction.
// Either every line is reserved and the order is committed, or nothing changes.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, lines []OrderLine) (*PlacedOrder, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var (
		user  *models.User
		order *models.Order
	)
	err := s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		number, err := newOrderNumber(s.now(), s.random)
		if err != nil {
			return err
		}
		order = &models.Order{
			UserID:        user.ID,
			OrderNumber:   number,
			TotalAmount:   decimal.Zero,
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		priced := make([]pricing.Line, 0, len(lines))
		for _, l := range lines {
			item, line, err := reserveLine(ctx, repos, order.ID, l)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
			priced = append(priced, line)
		}

		order.TotalAmount = pricing.Sum(priced)
		return repos.Orders.SetTotal(ctx, order.ID, order.TotalAmount)
	})
	if err != nil {
		if apperr.Is(err, apperr.KindInsufficientStock) {
			s.log.WithError(err).WithField("user_id", userID).Info("order rejected")
		}
		return nil, asAppError(err, "failed to place order")
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      user.ID,
		"total":        order.TotalAmount.StringFixed(2),
		"items":        len(order.Items),
	}).Info("order placed")

	sent, detail := s.sendConfirmation(ctx, user, order)
	s.publish(ctx, events.OrderCreated(order, s.now()))

	return &PlacedOrder{Order: order, NotificationSent: sent, NotificationDetail: detail}, nil
}

// reserveLine locks the product, checks stock, writes the order item and decrements stock.
func reserveLine(ctx context.Context, repos repositories.Repositories, orderID uint, l OrderLine) (*models.OrderItem, pricing.Line, error) {
	product, err := repos.Products.GetForUpdate(ctx, l.ProductID)
	if err != nil {
		return nil, pricing.Line{}, err
	}
	if !product.IsActive {
		return nil, pricing.Line{}, apperr.NotFound("product with ID %d not found", l.ProductID)
	}
	if product.Stock < l.Quantity {
		return nil, pricing.Line{}, apperr.InsufficientStock(apperr.StockShortage{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   l.Quantity,
			Available:   product.Stock,
		})
	}

	line, err := pricing.Price(product.Price, product.TaxRate, l.Quantity)
	if err != nil {
		return nil, pricing.Line{}, apperr.Validation(err.Error(), nil)
	}

	item := &models.OrderItem{
		OrderID:     orderID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    l.Quantity,
		UnitPrice:   line.UnitPrice,
		TaxAmount:   line.TaxAmount,
		TotalPrice:  line.Total,
	}
	if err := repos.Orders.CreateItem(ctx, item); err != nil {
		return nil, pricing.Line{}, err
	}

	ok, err := repos.Products.DecrementStock(ctx, product.ID, l.Quantity)
	if err != nil {
		return nil, pricing.Line{}, err
	}
	if !ok {
		// stores without row locks can lose the race between the check and the update
		available := product.Stock
		if fresh, err := repos.Products.GetByID(ctx, product.ID); err == nil {
			available = fresh.Stock
		}
		return nil, pricing.Line{}, apperr.InsufficientStock(apperr.StockShortage{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   l.Quantity,
			Available:   available,
		})
	}
	return item, line, nil
}

func (s *OrderService) sendConfirmation(ctx context.Context, user *models.User, order *models.Order) (bool, string) {
	if s.mailer == nil {
		return false, mailer.ErrNotConfigured.Error()
	}

	c := mailer.OrderConfirmation{
		To:          user.Email,
		Name:        user.DisplayName(),
		OrderNumber: order.OrderNumber,
		Total:       order.TotalAmount,
	}
	for _, item := range order.Items {
		c.Items = append(c.Items, mailer.ConfirmationItem{Name: item.ProductName, Quantity: item.Quantity, Total: item.TotalPrice})
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailWait)
	defer cancel()
	if err := s.mailer.SendOrderConfirmation(mailCtx, c); err != nil {
		s.log.WithError(err).WithField("order_number", order.OrderNumber).Warn("order confirmation email failed")
		return false, err.Error()
	}
	return true, confirmationSentDetail
}

func (s *OrderService) publish(ctx context.Context, event events.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":        event.Type,
			"order_number": event.OrderNumber,
		}).Warn("failed to publish order event")
	}
}

// ListUserOrders returns the user's orders newest first, with a has_reviewed flag per item.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uint) (*UserOrders, error) {
	orders, err := s.repos.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	reviewed, err := s.repos.Reviews.ReviewedProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repos.Orders.CountByUserAndStatus(ctx, userID, models.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	out := &UserOrders{Orders: make([]OrderView, 0, len(orders)), PendingCount: pending}
	for _, o := range orders {
		view := OrderView{Order: o, Items: make([]OrderItemView, 0, len(o.Items))}
		for _, item := range o.Items {
			view.Items = append(view.Items, OrderItemView{OrderItem: item, HasReviewed: reviewed[item.ProductID]})
		}
		out.Orders = append(out.Orders, view)
	}
	return out, nil
}

// GetOrder returns one order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	order, err := s.repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(order.UserID) {
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	return order, nil
}

func parseStatus(raw string) (models.OrderStatus, error) {
	status := models.OrderStatus(raw)
	if !status.Valid() {
		return "", apperr.Validation(fmt.Sprintf("invalid order status %q", raw), map[string]interface{}{
			"allowed": []models.OrderStatus{
				models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusShipped,
				models.OrderStatusDelivered, models.OrderStatusCancelled,
			},
		})
	}
	return status, nil
}

func parsePaymentStatus(raw string) (models.PaymentStatus, error) {
	status := models.PaymentStatus(raw)
	if !status.Valid() {
		return "", apperr.Validation(fmt.Sprintf("invalid payment status %q", raw), map[string]interface{}{
			"allowed": []models.PaymentStatus{models.PaymentStatusUnpaid, models.PaymentStatusPaid, models.PaymentStatusRefunded},
		})
	}
	return status, nil
}

// transition moves order to next inside a transaction. Cancelling restores stock of every item.
func transition(ctx context.Context, repos repositories.Repositories, order *models.Order, next models.OrderStatus) (bool, error) {
	if order.Status == next {
		return false, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return false, apperr.Validation(
			fmt.Sprintf("cannot change order status from %s to %s", order.Status, next),
			map[string]interface{}{"from": order.Status, "to": next},
		)
	}
	if next == models.OrderStatusCancelled {
		for _, item := range order.Items {
			if err := repos.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return false, err
			}
		}
	}
	if err := repos.Orders.UpdateStatus(ctx, order.ID, next); err != nil {
		return false, err
	}
	order.Status = next
	return true, nil
}

// UpdateOrder applies an admin change of status and/or payment status.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, update OrderUpdate) (*models.Order, error) {
	if update.Status == nil && update.PaymentStatus == nil {
		return nil, apperr.Validation("nothing to update: provide status or payment_status", nil)
	}

	var (
		nextStatus  models.OrderStatus
		nextPayment models.PaymentStatus
		err         error
	)
	if update.Status != nil {
		if nextStatus, err = parseStatus(*update.Status); err != nil {
			return nil, err
		}
	}
	if update.PaymentStatus != nil {
		if nextPayment, err = parsePaymentStatus(*update.PaymentStatus); err != nil {
			return nil, err
		}
	}

	var (
		order    *models.Order
		previous models.OrderStatus
		changed  bool
	)
	err = s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		previous = order.Status

		if update.Status != nil {
			if changed, err = transition(ctx, repos, order, nextStatus); err != nil {
				return err
			}
		}

		if update.PaymentStatus != nil && order.PaymentStatus != nextPayment {
			if !order.PaymentStatus.CanTransitionTo(nextPayment) {
				return apperr.Validation(
					fmt.Sprintf("cannot change payment status from %s to %s", order.PaymentStatus, nextPayment),
					map[string]interface{}{"from": order.PaymentStatus, "to": nextPayment},
				)
			}
			if err := repos.Orders.UpdatePaymentStatus(ctx, order.ID, nextPayment); err != nil {
				return err
			}
			order.PaymentStatus = nextPayment
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to update order")
	}

	if changed {
		s.log.WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"from":         previous,
			"to":           order.Status,
		}).Info("order status changed")
		s.publish(ctx, events.OrderStatusChanged(order, previous, s.now()))
	}
	return order, nil
}

// CancelOrder lets the owner (or an admin) cancel an order that has not shipped yet.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	var (
		order    *models.Order
		previous models.OrderStatus
		changed  bool
	)
	err := s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.canAccess(order.UserID) {
			return apperr.Forbidden("you do not have access to this order")
		}
		previous = order.Status
		changed, err = transition(ctx, repos, order, models.OrderStatusCancelled)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "failed to cancel order")
	}
	if changed {
		s.publish(ctx, events.OrderStatusChanged(order, previous, s.now()))
	}
	return order, nil
}

// DeleteOrder removes an order and its items. Stock reserved by an order that never shipped is restored.
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	err := s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusConfirmed {
			for _, item := range order.Items {
				if err := repos.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return repos.Orders.Delete(ctx, id)
	})
	if err != nil {
		return asAppError(err, "failed to delete order")
	}
	s.log.WithField("order_id", id).Info("order deleted")
	return nil
}
