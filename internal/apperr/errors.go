package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyCart         = errors.New("cannot create order with empty cart")
	// ErrStorageCorrupt is recovered by callers that load persisted state;
	// it never reaches an HTTP response on its own.
	ErrStorageCorrupt = errors.New("storage corrupt")
)

// HTTPStatus maps a failure from the service layer to a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsBusinessFailure reports whether err is a rule violation rather than an
// infrastructure error. Saga branches answer FAILURE for these instead of
// asking the coordinator to retry.
func IsBusinessFailure(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEmptyCart)
}
