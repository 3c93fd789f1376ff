package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/api/metrics"
	"github.com/printease/printease/internal/core/domain"
)

// RBAC enforces role-based access control on the identity set by Auth.
// With no roles it only requires that Auth ran.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			if len(allowed) == 0 {
				return next(c)
			}
			if _, ok := allowed[identity.Role]; !ok {
				metrics.AccessRejectionsTotal.WithLabelValues("role").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}
			return next(c)
		}
	}
}
