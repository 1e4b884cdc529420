package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

// IPAllowList rejects callers whose address does not satisfy their own
// allowedIPs under match. Users without an allow-list pass.
func IPAllowList(match domain.IPMatchPolicy) echo.MiddlewareFunc {
	if match == nil {
		match = domain.SubstringIPMatch
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok {
				return reject(domain.ErrMissingToken)
			}

			ip := c.RealIP()
			if !p.User.AllowsIP(ip, match) {
				return reject(fmt.Errorf("access denied from IP %s: %w", ip, domain.ErrForbidden))
			}
			return next(c)
		}
	}
}
