package http

import (
	"errors"
	"net/http"

	"farmstand-realtime/internal/auth"
	"farmstand-realtime/internal/realtime"
	pkgErrors "farmstand-realtime/pkg/errors"
)

var (
	errUnauthenticated = errors.New("missing authentication")
	errRoleNotGranted  = errors.New("role not granted")
	errStaffOnly       = errors.New("staff role required")
	errUnknownResource = errors.New("unknown broadcast resource")
	errShuttingDown    = errors.New("server shutting down")
	errSlowConsumer    = errors.New("client is not reading fast enough")
)

const (
	ErrCodeValidation    = 110001
	ErrCodeRoleNotGrant  = 110002
	ErrCodeStaffOnly     = 110003
	ErrCodeUnknown       = 110004
	ErrCodeRateLimited   = 110005
	ErrCodeUnavailable   = 110006
	ErrCodeNotConfigured = 110007
	ErrCodeTransport     = 110008
)

// mapError turns domain errors into response errors. Unknown errors are
// returned unchanged and answered with a 500.
func (h *Handler) mapError(err error) error {
	var ve *realtime.ValidationError
	var rle *auth.RateLimitError

	switch {
	case errors.As(err, &ve):
		return pkgErrors.NewValidationError(ErrCodeValidation, ve.Field, ve.Message)
	case errors.As(err, &rle):
		if rle.Limit == auth.LimitSessionsTotal {
			return pkgErrors.NewHTTPError(ErrCodeUnavailable, "Maximum sessions reached", http.StatusServiceUnavailable)
		}
		return pkgErrors.NewHTTPError(ErrCodeRateLimited, "Too many realtime sessions", http.StatusTooManyRequests)
	case errors.Is(err, errUnauthenticated):
		return pkgErrors.NewUnauthorizedHTTPError()
	case errors.Is(err, errRoleNotGranted):
		return pkgErrors.NewPermissionError(ErrCodeRoleNotGrant, "role", "not granted to this user")
	case errors.Is(err, errStaffOnly):
		return pkgErrors.NewPermissionError(ErrCodeStaffOnly, "role", "staff role required")
	case errors.Is(err, errUnknownResource):
		return pkgErrors.NewHTTPError(ErrCodeUnknown, "Unknown resource", http.StatusNotFound)
	case errors.Is(err, errShuttingDown):
		return pkgErrors.NewHTTPError(ErrCodeUnavailable, "Server shutting down", http.StatusServiceUnavailable)
	case errors.Is(err, realtime.ErrConfiguration):
		return pkgErrors.NewHTTPError(ErrCodeNotConfigured, "Realtime channels are not configured", http.StatusServiceUnavailable)
	case errors.Is(err, realtime.ErrTransport):
		return pkgErrors.NewHTTPError(ErrCodeTransport, "Realtime transport unavailable", http.StatusBadGateway)
	}
	return err
}
