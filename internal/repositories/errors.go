package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/apperr"
)

// translate turns store errors into application errors. notFound is used for gorm.ErrRecordNotFound.
func translate(err error, notFound *apperr.Error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(op+": duplicate value", err)
	default:
		return apperr.Persistence(op, err)
	}
}

func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return translate(err, nil, fmt.Sprintf(format, args...))
}
