package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/api/metrics"
	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// IdentityKey is the echo context key holding the verified domain.Identity.
const IdentityKey = "identity"

// Auth extracts the Bearer token, verifies it and injects the identity into
// both the echo context and the request context.
//
// A missing or malformed header is 401; a token that fails verification is 403.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.AccessRejectionsTotal.WithLabelValues("missing_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.AccessRejectionsTotal.WithLabelValues("malformed_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			identity, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrTokenExpired) {
					metrics.AccessRejectionsTotal.WithLabelValues("expired_token").Inc()
				} else {
					metrics.AccessRejectionsTotal.WithLabelValues("invalid_token").Inc()
				}
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			c.Set(IdentityKey, *identity)
			c.SetRequest(c.Request().WithContext(domain.WithIdentity(c.Request().Context(), *identity)))

			return next(c)
		}
	}
}

// Access is Auth followed by RBAC. An empty role list admits any verified role.
func Access(verifier ports.TokenVerifier, roles ...domain.Role) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{Auth(verifier), RBAC(roles...)}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(IdentityKey).(domain.Identity)
	return id, ok
}
