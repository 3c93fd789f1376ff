package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger attaches a request-scoped zerolog logger to the request
// context and logs one line per completed request.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			lctx := base.With().
				Str("method", req.Method).
				Str("path", c.Path()).
				Str("remote_ip", c.RealIP())
			if rid != "" {
				lctx = lctx.Str("request_id", rid)
			}
			l := lctx.Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			dur := time.Since(start)

			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = l.Error().Err(err)
			case status >= 400:
				ev = l.Warn()
			default:
				ev = l.Info().Int64("bytes", c.Response().Size)
			}
			ev.Int("status", status).Dur("duration", dur).Msg("request completed")
			return nil
		}
	}
}
