package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

type ReviewHandler struct {
	service *services.ReviewService
}

func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) RegisterRoutes(r Routers) {
	r.API.Get("/products/:id/reviews", h.HandleList)
	r.API.Post("/products/:id/reviews", r.Auth, h.HandleSubmit)

	reviews := r.API.Group("/reviews", r.Auth)
	reviews.Put("/:id", h.HandleUpdate)
	reviews.Delete("/:id", h.HandleDelete)

	r.Admin.Get("/reviews/pending", h.HandlePending)
	r.Admin.Patch("/reviews/:id", h.HandleApproval)
}

// HandleList returns the approved reviews of a product.
func (h *ReviewHandler) HandleList(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	page := pagination(c)
	reviews, total, err := h.service.ListProductReviews(c.UserContext(), productID, page)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, reviews, page, total)
}

// HandleSubmit records a review. Only customers who received the product may review it.
func (h *ReviewHandler) HandleSubmit(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req services.ReviewInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	review, err := h.service.SubmitReview(c.UserContext(), middleware.CurrentActor(c).UserID, productID, req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, review)
}

func (h *ReviewHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req services.ReviewUpdate
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	review, err := h.service.UpdateReview(c.UserContext(), middleware.CurrentActor(c), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, review)
}

func (h *ReviewHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.service.DeleteReview(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return fail(c, err)
	}
	return message(c, "Review deleted")
}

func (h *ReviewHandler) HandlePending(c *fiber.Ctx) error {
	reviews, err := h.service.ListPending(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, reviews)
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func (h *ReviewHandler) HandleApproval(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req approvalRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	review, err := h.service.SetApproval(c.UserContext(), id, *req.Approved)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, review)
}
