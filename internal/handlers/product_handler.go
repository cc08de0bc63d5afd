package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// ProductHandler serves the catalog.
type ProductHandler struct {
	service *services.ProductService
}

func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) RegisterRoutes(r Routers) {
	r.API.Get("/products", h.HandleList)
	r.API.Get("/products/:id", h.HandleGet)

	admin := r.Admin.Group("/products")
	admin.Get("/", h.HandleAdminList)
	admin.Post("/", h.HandleCreate)
	admin.Put("/:id", h.HandleUpdate)
	admin.Patch("/:id/stock", h.HandleSetStock)
	admin.Delete("/:id", h.HandleDelete)
}

func productFilter(c *fiber.Ctx) repositories.ProductFilter {
	filter := repositories.ProductFilter{
		Search:     c.Query("search"),
		Pagination: pagination(c),
	}
	if id := c.QueryInt("category_id", 0); id > 0 {
		cid := uint(id)
		filter.CategoryID = &cid
	}
	return filter
}

// HandleList returns active products, optionally filtered by search text and category.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	filter := productFilter(c)
	products, total, err := h.service.ListProducts(c.UserContext(), services.Actor{}, filter)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, products, filter.Pagination, total)
}

func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	product, err := h.service.GetProduct(c.UserContext(), services.Actor{}, id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

func (h *ProductHandler) HandleAdminList(c *fiber.Ctx) error {
	filter := productFilter(c)
	filter.IncludeInactive = c.QueryBool("include_inactive", true)
	products, total, err := h.service.ListProducts(c.UserContext(), middleware.CurrentActor(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, products, filter.Pagination, total)
}

func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var req services.ProductInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	middleware.Logger(c).WithField("sku", product.SKU).Info("product created")
	return created(c, product)
}

func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req services.ProductInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

type stockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

func (h *ProductHandler) HandleSetStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req stockRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if err := h.service.SetStock(c.UserContext(), id, *req.Stock); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"product_id": id, "stock": *req.Stock})
}

func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return message(c, "Product deleted")
}
