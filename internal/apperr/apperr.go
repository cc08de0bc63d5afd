package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindConflict          Kind = "conflict"
	KindPurchaseRequired  Kind = "purchase_required"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindPersistence       Kind = "persistence"
)

// Error is the error type returned by services.
type Error struct {
	Kind    Kind
	Message string
	Detail  interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StockShortage is the detail attached to an insufficient stock error.
type StockShortage struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

func Validation(message string, detail interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Detail: detail}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func PurchaseRequired(message string) *Error {
	return &Error{Kind: KindPurchaseRequired, Message: message}
}

func InsufficientStock(s StockShortage) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)",
			s.ProductName, s.Requested, s.Available),
		Detail: s,
	}
}

// KindOf reports the kind of err. Errors that are not *Error are persistence failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind onto the status code the API responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPurchaseRequired, KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
