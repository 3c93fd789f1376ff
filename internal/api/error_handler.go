package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/pkg/logger"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message": "<text>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, rate limiter, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if inner, ok := he.Message.(error); ok {
			return he.Code, inner.Error()
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Reason
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateAccount):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusForbidden, "Token expired"
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusForbidden, "Invalid token"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrResetCodeInvalid):
		return http.StatusBadRequest, "Reset code is invalid or expired"
	case errors.Is(err, domain.ErrConversationNotFound):
		return http.StatusNotFound, "Conversation not found"
	case errors.Is(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound, "Notification not found"
	case errors.Is(err, domain.ErrAvatarNotFound):
		return http.StatusNotFound, "Avatar not found"
	}

	// Unexpected error: log the real cause, return a generic message.
	l := logger.FromContext(c.Request().Context())
	if l.GetLevel() == zerolog.Disabled {
		l = &log
	}
	l.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Internal server error"
}
