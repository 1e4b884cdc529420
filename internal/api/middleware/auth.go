package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
	"github.com/workforcehq/hrms-api/internal/pkg/metrics"
)

// PrincipalKey is the echo context key holding the authenticated
// *domain.Principal.
const PrincipalKey = "principal"

// Authenticate resolves the bearer token and attaches the principal to both
// the echo context and the request context. Nothing is attached on failure.
func Authenticate(auth ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return reject(err)
			}

			req := c.Request()
			principal, err := auth.Authenticate(req.Context(), token)
			if err != nil {
				return reject(err)
			}

			c.Set(PrincipalKey, principal)
			c.SetRequest(req.WithContext(domain.ContextWithPrincipal(req.Context(), principal)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrMissingToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domain.ErrMissingToken
	}
	return token, nil
}

// principalFrom returns the principal attached by Authenticate.
func principalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(*domain.Principal)
	if ok && p != nil && p.User != nil {
		return p, true
	}
	return domain.PrincipalFromContext(c.Request().Context())
}

func reject(err error) error {
	metrics.AuthFailuresTotal.WithLabelValues(domain.Kind(err)).Inc()
	return err
}
