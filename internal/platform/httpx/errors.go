// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Sentinel errors understood by RespondError.
var (
	ErrNotFound     = shared.ErrNotFound
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
)

// StatusError lets a package outside httpx choose the response status for
// its own error values without httpx importing it.
type StatusError interface {
	error
	HTTPStatus() int
}

// RespondError maps errors to RFC7807 responses. Unknown errors become an
// opaque 500 so internal details never reach the client.
func RespondError(w http.ResponseWriter, err error) {
	var se StatusError
	switch {
	case errors.As(err, &se):
		status := se.HTTPStatus()
		Problem(w, status, http.StatusText(status), se.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, shared.ErrCSRFTokenMismatch), errors.Is(err, shared.ErrCSRFTokenMissing):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
