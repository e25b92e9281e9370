package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInactive           = errors.New("collaborator inactive")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotReady           = errors.New("driver or vehicle not selected")
	ErrInvalidInput       = errors.New("invalid input")

	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrPositionTimeout     = errors.New("position timeout")
	ErrWriteFailed         = errors.New("write failed")
)

// Status maps an error to the HTTP status returned to the device.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInactive), errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrPositionUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
