// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors that handlers wrap to select a response status.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrValidation    = errors.New("validation failed")
	ErrUnprocessable = errors.New("unprocessable entity")
	ErrConflict      = errors.New("conflict")
	ErrUpstream      = errors.New("upstream dependency failed")
	ErrTimeout       = errors.New("request timed out")
	ErrRateLimited   = errors.New("too many requests")
)

// RespondError maps wrapped sentinel errors to RFC7807 responses. Unknown errors become a 500
// without leaking their message.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnprocessable):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, ErrUpstream):
		Problem(w, http.StatusBadGateway, "Upstream Failure", "the ledger data source is unavailable")
	case errors.Is(err, ErrTimeout):
		Problem(w, http.StatusGatewayTimeout, "Timeout", "the report could not be built in time")
	case errors.Is(err, ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
