package service

import (
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

// storeError keeps typed errors and reports everything else as an
// unavailable store.
func storeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Unavailable(err, message)
}

// lookupError maps a missing row to NOT_FOUND with the given message.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return storeError(err, failure)
}

// validationError reports a rejected payload, naming each field the
// validator refused by its JSON name.
func validationError(err error, message string) error {
	appErr := appErrors.Validation(err, message)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			appErr = appErr.WithField(fe.Field(), fe.Tag())
		}
	}
	return appErr
}
