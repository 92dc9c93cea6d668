package store

import (
	"errors"
	"net/http"
)

// HTTPStatus maps a store error onto the response code handlers return.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyTaken),
		errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrDuplicateRating),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrCheckoutNotPending),
		errors.Is(err, ErrBadTransition):
		return http.StatusConflict
	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrJobNotDelivered):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
