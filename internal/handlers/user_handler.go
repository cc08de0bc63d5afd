package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

// UserHandler serves the customer's profile, wishlist and notifications.
type UserHandler struct {
	users         *services.UserService
	wishlist      *services.WishlistService
	notifications *services.NotificationService
}

func NewUserHandler(users *services.UserService, wishlist *services.WishlistService, notifications *services.NotificationService) *UserHandler {
	return &UserHandler{users: users, wishlist: wishlist, notifications: notifications}
}

func (h *UserHandler) RegisterRoutes(r Routers) {
	profile := r.API.Group("/profile", r.Auth)
	profile.Get("/", h.HandleProfile)
	profile.Put("/", h.HandleUpdateProfile)

	wishlist := r.API.Group("/wishlist", r.Auth)
	wishlist.Get("/", h.HandleWishlist)
	wishlist.Post("/", h.HandleAddToWishlist)
	wishlist.Delete("/:id", h.HandleRemoveFromWishlist)

	notifications := r.API.Group("/notifications", r.Auth)
	notifications.Get("/", h.HandleNotifications)
	notifications.Patch("/:id/read", h.HandleMarkRead)
}

func (h *UserHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.users.Profile(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileUpdate
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	user, err := h.users.UpdateProfile(c.UserContext(), middleware.CurrentActor(c).UserID, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *UserHandler) HandleWishlist(c *fiber.Ctx) error {
	items, err := h.wishlist.List(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

type wishlistRequest struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
}

func (h *UserHandler) HandleAddToWishlist(c *fiber.Ctx) error {
	var req wishlistRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	item, err := h.wishlist.Add(c.UserContext(), middleware.CurrentActor(c).UserID, req.ProductID)
	if err != nil {
		return fail(c, err)
	}
	return created(c, item)
}

func (h *UserHandler) HandleRemoveFromWishlist(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.wishlist.Remove(c.UserContext(), middleware.CurrentActor(c).UserID, id); err != nil {
		return fail(c, err)
	}
	return message(c, "Removed from wishlist")
}

func (h *UserHandler) HandleNotifications(c *fiber.Ctx) error {
	list, err := h.notifications.ListNotifications(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, list)
}

func (h *UserHandler) HandleMarkRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.notifications.MarkRead(c.UserContext(), middleware.CurrentActor(c).UserID, id); err != nil {
		return fail(c, err)
	}
	return message(c, "Notification marked as read")
}
