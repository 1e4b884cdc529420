package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusByKind maps domain error kinds to HTTP status codes.
var statusByKind = map[string]int{
	"INVALID_CREDENTIALS":   http.StatusUnauthorized,
	"ACCOUNT_LOCKED":        http.StatusLocked,
	"ACCOUNT_DEACTIVATED":   http.StatusUnauthorized,
	"MISSING_TOKEN":         http.StatusUnauthorized,
	"INVALID_TOKEN":         http.StatusUnauthorized,
	"TOKEN_EXPIRED":         http.StatusUnauthorized,
	"INVALID_REFRESH_TOKEN": http.StatusUnauthorized,
	"SESSION_EXPIRED":       http.StatusUnauthorized,
	"CREDENTIAL_ROTATED":    http.StatusUnauthorized,
	"USER_NOT_FOUND":        http.StatusUnauthorized,
	"FORBIDDEN":             http.StatusForbidden,
	"STORE_UNAVAILABLE":     http.StatusServiceUnavailable,
	"USER_EXISTS":           http.StatusConflict,
	"WEAK_PASSWORD":         http.StatusBadRequest,
	"INVALID_ROLE":          http.StatusBadRequest,
	"INVALID_INPUT":         http.StatusBadRequest,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes and error kinds.
//   - Logs and reports unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<KIND>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, handler-chosen
	// statuses). The internal cause, when it is a domain error, names the kind.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := domain.Kind(he.Internal)
		if code == "INTERNAL" {
			code = httpKind(he.Code)
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: code}
	}

	kind := domain.Kind(err)
	if status, ok := statusByKind[kind]; ok {
		return status, errorResponse{Error: publicMessage(kind, err), Code: kind}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.CaptureException(err)
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"}
}

// publicMessage keeps the wrapped detail only where it is meant for the
// caller. Everywhere else the bare sentinel text is returned.
func publicMessage(kind string, err error) string {
	switch kind {
	case "FORBIDDEN", "WEAK_PASSWORD", "INVALID_ROLE", "INVALID_INPUT":
		return err.Error()
	case "STORE_UNAVAILABLE":
		return "session store unavailable, please retry"
	}
	for _, k := range []error{
		domain.ErrInvalidCredentials, domain.ErrAccountLocked, domain.ErrAccountDeactivated,
		domain.ErrMissingToken, domain.ErrInvalidToken, domain.ErrTokenExpired,
		domain.ErrInvalidRefreshToken, domain.ErrSessionExpired, domain.ErrCredentialRotated,
		domain.ErrUserNotFound, domain.ErrUserExists,
	} {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return err.Error()
}

func httpKind(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "ERROR"
	}
}
