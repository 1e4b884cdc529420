package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

// RequireRole enforces role-based access control.
func RequireRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := roleSet(allowedRoles)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok {
				return reject(domain.ErrMissingToken)
			}
			if _, ok := allowed[p.User.Role]; !ok {
				return reject(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}

// RequirePermission passes admins and users holding perm. Unknown
// permissions are refused for everyone.
func RequirePermission(perm domain.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok {
				return reject(domain.ErrMissingToken)
			}
			if !p.User.Can(perm) {
				return reject(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}

// RequireOwnerOrRole passes when the :id (or :userId) path parameter names
// the caller, or when the caller holds one of allowedRoles.
func RequireOwnerOrRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := roleSet(allowedRoles)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok {
				return reject(domain.ErrMissingToken)
			}

			resourceID := c.Param("id")
			if resourceID == "" {
				resourceID = c.Param("userId")
			}
			if resourceID != "" && resourceID == p.User.ID {
				return next(c)
			}
			if _, ok := allowed[p.User.Role]; ok {
				return next(c)
			}
			return reject(domain.ErrForbidden)
		}
	}
}

func roleSet(roles []domain.Role) map[domain.Role]struct{} {
	set := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}
