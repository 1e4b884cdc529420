package domain

import "errors"

// Authentication failures. All of them end the current request.
var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrAccountLocked       = errors.New("account is locked, please try again later")
	ErrAccountDeactivated  = errors.New("user account has been deactivated")
	ErrMissingToken        = errors.New("access token is required")
	ErrInvalidToken        = errors.New("invalid access token")
	ErrTokenExpired        = errors.New("access token has expired")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrSessionExpired      = errors.New("session expired, please login again")
	ErrCredentialRotated   = errors.New("password was changed, please login again")
	ErrUserNotFound        = errors.New("user not found")
)

// Authorization failures.
var ErrForbidden = errors.New("access forbidden")

// ErrStoreUnavailable signals that a backing store could not be reached.
// The session registry answers with it instead of a plain false so callers
// can fall back to degraded mode.
var ErrStoreUnavailable = errors.New("store unavailable")

// Account management.
var (
	ErrUserExists   = errors.New("user already exists")
	ErrWeakPassword = errors.New("password does not meet strength requirements")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidInput = errors.New("invalid input")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidCredentials, "INVALID_CREDENTIALS"},
	{ErrAccountLocked, "ACCOUNT_LOCKED"},
	{ErrAccountDeactivated, "ACCOUNT_DEACTIVATED"},
	{ErrMissingToken, "MISSING_TOKEN"},
	{ErrInvalidToken, "INVALID_TOKEN"},
	{ErrTokenExpired, "TOKEN_EXPIRED"},
	{ErrInvalidRefreshToken, "INVALID_REFRESH_TOKEN"},
	{ErrSessionExpired, "SESSION_EXPIRED"},
	{ErrCredentialRotated, "CREDENTIAL_ROTATED"},
	{ErrUserNotFound, "USER_NOT_FOUND"},
	{ErrForbidden, "FORBIDDEN"},
	{ErrStoreUnavailable, "STORE_UNAVAILABLE"},
	{ErrUserExists, "USER_EXISTS"},
	{ErrWeakPassword, "WEAK_PASSWORD"},
	{ErrInvalidRole, "INVALID_ROLE"},
	{ErrInvalidInput, "INVALID_INPUT"},
}

// Kind returns the stable machine-readable name of a domain error, or
// "INTERNAL" for anything else.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "INTERNAL"
}
