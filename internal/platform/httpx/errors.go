package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors mapped onto backend-style responses.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps sentinel errors to detail responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrDuplicate):
		Detail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		Detail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		Detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, ErrUnauthorized):
		Detail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
	default:
		Detail(w, http.StatusInternalServerError, "A server error occurred.")
	}
}
