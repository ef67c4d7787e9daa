package httpx

import (
	"errors"
	"net/http"

	"github.com/parley-forum/parley/internal/shared"
)

// ErrValidation marks request-body validation failures surfaced by
// handlers.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusBadRequest, "Invalid Credentials", err.Error())
	case errors.Is(err, shared.ErrLocked):
		Problem(w, http.StatusForbidden, "Locked", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
