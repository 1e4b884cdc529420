package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

// principal returns the caller attached by the Authenticate middleware.
// Its absence means the route was registered without authentication.
func principal(c echo.Context) (*domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil, domain.ErrMissingToken
	}
	return p, nil
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(domain.ErrInvalidInput)
	}
	return nil
}
