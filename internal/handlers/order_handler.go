package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	payments *services.PaymentService
	limiter  fiber.Handler
}

// NewOrderHandler creates a new OrderHandler. limiter guards order placement and may be nil.
func NewOrderHandler(service *services.OrderService, payments *services.PaymentService, limiter fiber.Handler) *OrderHandler {
	return &OrderHandler{service: service, payments: payments, limiter: limiter}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(r Routers) {
	orderRoutes := r.API.Group("/orders", r.Auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", orNext(h.limiter), h.HandleCreateOrder)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Get("/:id/payment-qr", h.HandlePaymentQR)
}

// CreateOrderRequest is the body of POST /orders. UserID defaults to the caller; only admins may
// place an order for someone else.
type CreateOrderRequest struct {
	UserID uint                 `json:"user_id"`
	Items  []services.OrderLine `json:"items" validate:"dive"`
}

// PlaceOrderResponse is the body returned for a placed order.
type PlaceOrderResponse struct {
	OrderID            uint                 `json:"order_id"`
	OrderNumber        string               `json:"order_number"`
	TotalAmount        decimal.Decimal      `json:"total_amount"`
	Status             models.OrderStatus   `json:"status"`
	PaymentStatus      models.PaymentStatus `json:"payment_status"`
	Items              []models.OrderItem   `json:"items"`
	NotificationSent   bool                 `json:"notification_sent"`
	NotificationDetail string               `json:"notification_detail"`
}

func newPlaceOrderResponse(p *services.PlacedOrder) PlaceOrderResponse {
	return PlaceOrderResponse{
		OrderID:            p.Order.ID,
		OrderNumber:        p.Order.OrderNumber,
		TotalAmount:        p.Order.TotalAmount,
		Status:             p.Order.Status,
		PaymentStatus:      p.Order.PaymentStatus,
		Items:              p.Order.Items,
		NotificationSent:   p.NotificationSent,
		NotificationDetail: p.NotificationDetail,
	}
}

// HandleCreateOrder places an order and reserves stock for all of its lines.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	actor := middleware.CurrentActor(c)
	userID := actor.UserID
	if req.UserID != 0 && req.UserID != actor.UserID {
		if !actor.IsAdmin() {
			return fail(c, apperr.Forbidden("you may only place orders for yourself"))
		}
		userID = req.UserID
	}

	placed, err := h.service.PlaceOrder(c.UserContext(), userID, req.Items)
	if err != nil {
		return fail(c, err)
	}
	return created(c, newPlaceOrderResponse(placed))
}

// HandleGetOrders returns the caller's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListUserOrders(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	order, err := h.service.GetOrder(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	order, err := h.service.CancelOrder(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

func (h *OrderHandler) HandlePaymentQR(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	qr, err := h.payments.OrderQR(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, qr)
}
