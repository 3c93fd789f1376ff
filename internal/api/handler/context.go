package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/api/middleware"
	"github.com/printease/printease/internal/core/domain"
)

// callerIdentity returns the identity injected by the Auth middleware. Handlers
// authorize only from this value, never from request body fields.
func callerIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.AccountID == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return id, nil
}

// bindAndValidate binds the request into dst and runs the echo validator.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return domain.Invalid("invalid payload")
	}
	return validate(c, dst)
}

func validate(c echo.Context, dst any) error {
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}
