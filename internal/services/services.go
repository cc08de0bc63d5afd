package services

import (
	"context"
	"errors"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/mailer"
	"storefront/internal/models"
)

// Actor is the authenticated caller of a service method.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// canAccess reports whether the actor owns the resource or is an admin.
func (a Actor) canAccess(ownerID uint) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

// OrderMailer sends transactional order email.
type OrderMailer interface {
	SendOrderConfirmation(ctx context.Context, c mailer.OrderConfirmation) error
}

// Clock returns the current time. Tests replace it for deterministic order numbers.
type Clock func() time.Time

var timeNow Clock = time.Now

// asAppError keeps application errors as they are and wraps everything else as a persistence failure.
func asAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Persistence(message, err)
}
