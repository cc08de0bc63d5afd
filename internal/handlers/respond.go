package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

// PageMeta describes one page of a list response.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Response{Success: true, Data: data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

func paged(c *fiber.Ctx, data interface{}, page repositories.Pagination, total int64) error {
	pages := int((total + int64(page.Limit) - 1) / int64(page.Limit))
	return c.JSON(Response{
		Success: true,
		Data:    data,
		Meta:    PageMeta{Page: page.Page, Limit: page.Limit, Total: total, TotalPages: pages},
	})
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(Response{Success: true, Data: fiber.Map{"message": msg}})
}

// fail writes err as an error envelope. Persistence failures are logged and their cause is not exposed.
func fail(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Persistence("internal server error", err)
	}

	body := &ErrorBody{Kind: appErr.Kind, Message: appErr.Message, Detail: appErr.Detail}
	status := apperr.HTTPStatus(appErr.Kind)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger(c).WithError(err).Error("request failed")
	}
	return c.Status(status).JSON(Response{Success: false, Error: body})
}

// ErrorHandler is the fiber error handler. It keeps fiber's own status codes (404 for unknown
// routes, 405, 413) and renders them in the envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := apperr.KindValidation
		switch fe.Code {
		case fiber.StatusNotFound:
			kind = apperr.KindNotFound
		case fiber.StatusUnauthorized:
			kind = apperr.KindUnauthorized
		case fiber.StatusForbidden:
			kind = apperr.KindForbidden
		default:
			if fe.Code >= fiber.StatusInternalServerError {
				kind = apperr.KindPersistence
			}
		}
		return c.Status(fe.Code).JSON(Response{Success: false, Error: &ErrorBody{Kind: kind, Message: fe.Message}})
	}
	return fail(c, err)
}

var validate = validator.New()

// bind parses the JSON body into v and runs its validate tags.
func bind(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.Validation("Invalid request body", err.Error())
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Validation("Validation failed", err.Error())
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, FieldError{
				Field:   jsonPath(e.Namespace()),
				Tag:     e.Tag(),
				Message: fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag()),
			})
		}
		return apperr.Validation("Validation failed", fields)
	}
	return nil
}

// jsonPath turns "createOrderRequest.Items[0].Quantity" into "items[0].quantity".
func jsonPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				prev := rune(s[i-1])
				if prev < 'A' || prev > 'Z' {
					b.WriteByte('_')
				}
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(fmt.Sprintf("invalid %s: %q", name, c.Params(name)), nil)
	}
	return uint(id), nil
}

func pagination(c *fiber.Ctx) repositories.Pagination {
	return repositories.Pagination{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", 20)}.Normalize()
}
