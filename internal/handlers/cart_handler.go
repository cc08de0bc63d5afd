package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

// CartHandler serves the shopping cart and checks it out through the order workflow.
type CartHandler struct {
	carts   *services.CartService
	orders  *services.OrderService
	limiter fiber.Handler
}

func NewCartHandler(carts *services.CartService, orders *services.OrderService, limiter fiber.Handler) *CartHandler {
	return &CartHandler{carts: carts, orders: orders, limiter: limiter}
}

func (h *CartHandler) RegisterRoutes(r Routers) {
	cart := r.API.Group("/cart", r.Auth)
	cart.Get("/", h.HandleGet)
	cart.Post("/items", h.HandleAdd)
	cart.Put("/items/:product_id", h.HandleUpdate)
	cart.Delete("/items/:product_id", h.HandleRemove)
	cart.Delete("/", h.HandleClear)
	cart.Post("/checkout", orNext(h.limiter), h.HandleCheckout)
}

type cartItemRequest struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gte=1"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

func (h *CartHandler) HandleGet(c *fiber.Ctx) error {
	cart, err := h.carts.GetCart(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, cart)
}

func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	var req cartItemRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	cart, err := h.carts.AddItem(c.UserContext(), middleware.CurrentActor(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, cart)
}

func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	productID, err := paramID(c, "product_id")
	if err != nil {
		return fail(c, err)
	}
	var req quantityRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	cart, err := h.carts.UpdateItem(c.UserContext(), middleware.CurrentActor(c).UserID, productID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, cart)
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	productID, err := paramID(c, "product_id")
	if err != nil {
		return fail(c, err)
	}
	cart, err := h.carts.RemoveItem(c.UserContext(), middleware.CurrentActor(c).UserID, productID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, cart)
}

func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.carts.Clear(c.UserContext(), middleware.CurrentActor(c).UserID); err != nil {
		return fail(c, err)
	}
	return message(c, "Cart cleared")
}

// HandleCheckout places an order for everything in the cart and empties it on success.
func (h *CartHandler) HandleCheckout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentActor(c).UserID

	lines, err := h.carts.Lines(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	placed, err := h.orders.PlaceOrder(ctx, userID, lines)
	if err != nil {
		return fail(c, err)
	}
	if err := h.carts.Clear(ctx, userID); err != nil {
		middleware.Logger(c).WithError(err).WithField("order_number", placed.Order.OrderNumber).
			Warn("failed to clear cart after checkout")
	}
	return created(c, newPlaceOrderResponse(placed))
}
