package handlers

import (
	"encoding/base64"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// AdminHandler serves the back office: dashboard, orders, invoices, accounts and notifications.
type AdminHandler struct {
	admin         *services.AdminService
	orders        *services.OrderService
	users         *services.UserService
	notifications *services.NotificationService
}

func NewAdminHandler(admin *services.AdminService, orders *services.OrderService, users *services.UserService, notifications *services.NotificationService) *AdminHandler {
	return &AdminHandler{admin: admin, orders: orders, users: users, notifications: notifications}
}

func (h *AdminHandler) RegisterRoutes(r Routers) {
	r.Admin.Get("/stats", h.HandleStats)

	orders := r.Admin.Group("/orders")
	orders.Get("/", h.HandleListOrders)
	orders.Post("/confirm-all", h.HandleConfirmAll)
	orders.Patch("/:id", h.HandleUpdateOrder)
	orders.Delete("/:id", h.HandleDeleteOrder)
	orders.Get("/:id/invoice", h.HandleInvoice)

	users := r.Admin.Group("/users")
	users.Get("/", h.HandleListUsers)
	users.Post("/", h.HandleCreateUser)
	users.Put("/:id", h.HandleUpdateUser)
	users.Delete("/:id", h.HandleDeleteUser)

	notifications := r.Admin.Group("/notifications")
	notifications.Get("/", h.HandleListNotifications)
	notifications.Post("/", h.HandleSendNotification)
	notifications.Patch("/:id", h.HandleSetNotificationRead)
	notifications.Delete("/:id", h.HandleDeleteNotification)
}

func (h *AdminHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, stats)
}

// HandleListOrders lists all orders with their customer, optionally filtered by ?status=.
func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	filter := repositories.OrderFilter{Pagination: pagination(c)}
	if s := c.Query("status"); s != "" {
		status := models.OrderStatus(s)
		filter.Status = &status
	}
	orders, total, err := h.admin.ListOrders(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, orders, filter.Pagination, total)
}

// HandleUpdateOrder changes status and/or payment status of an order.
func (h *AdminHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req services.OrderUpdate
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	order, err := h.orders.UpdateOrder(c.UserContext(), id, req)
	if err != nil {
		return fail(c, err)
	}
	middleware.Logger(c).WithFields(logrus.Fields{
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	}).Info("order updated by admin")
	return ok(c, order)
}

func (h *AdminHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.orders.DeleteOrder(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return message(c, "Order deleted")
}

// ConfirmAllResponse carries the bills of every confirmed order as one base64 PDF.
type ConfirmAllResponse struct {
	Message      string   `json:"message"`
	Confirmed    int      `json:"confirmed"`
	OrderNumbers []string `json:"order_numbers"`
	Filename     string   `json:"filename"`
	PDFBase64    string   `json:"pdf_base64"`
}

func (h *AdminHandler) HandleConfirmAll(c *fiber.Ctx) error {
	file, err := h.admin.ConfirmAllPending(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, ConfirmAllResponse{
		Message:      fmt.Sprintf("%d orders confirmed", len(file.OrderNumbers)),
		Confirmed:    len(file.OrderNumbers),
		OrderNumbers: file.OrderNumbers,
		Filename:     file.Filename,
		PDFBase64:    base64.StdEncoding.EncodeToString(file.PDF),
	})
}

// HandleInvoice downloads the PDF bill of one order.
func (h *AdminHandler) HandleInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	file, err := h.admin.Invoice(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	return c.Send(file.PDF)
}

// HandleListUsers lists accounts, optionally filtered by ?role= and ?q=.
func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	filter := repositories.UserFilter{Role: c.Query("role"), Search: c.Query("q"), Pagination: pagination(c)}
	users, total, err := h.users.ListUsers(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, users, filter.Pagination, total)
}

func (h *AdminHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req services.CreateUserInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	user, err := h.users.CreateUser(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, user)
}

func (h *AdminHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req services.UserUpdate
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	user, err := h.users.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.users.DeleteUser(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return fail(c, err)
	}
	return message(c, "User deleted")
}

func (h *AdminHandler) HandleListNotifications(c *fiber.Ctx) error {
	page := pagination(c)
	list, total, err := h.notifications.ListAll(c.UserContext(), page)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, list, page, total)
}

// SendNotificationResponse lists who received an admin message.
type SendNotificationResponse struct {
	Message string `json:"message"`
	UserIDs []uint `json:"user_ids"`
}

func (h *AdminHandler) HandleSendNotification(c *fiber.Ctx) error {
	var req services.SendNotificationInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ids, err := h.notifications.Send(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, SendNotificationResponse{
		Message: fmt.Sprintf("%d notifications created", len(ids)),
		UserIDs: ids,
	})
}

type notificationReadRequest struct {
	IsRead *bool `json:"is_read" validate:"required"`
}

func (h *AdminHandler) HandleSetNotificationRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req notificationReadRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if err := h.notifications.SetRead(c.UserContext(), id, *req.IsRead); err != nil {
		return fail(c, err)
	}
	return message(c, "Notification updated")
}

func (h *AdminHandler) HandleDeleteNotification(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.notifications.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return message(c, "Notification deleted")
}
